package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddress_Line(t *testing.T) {
	a := &Address{Street: "Av. Corrientes", Number: "1234", Floor: "3", City: "CABA", Province: "Buenos Aires", PostalCode: "C1043"}
	assert.Equal(t, "Av. Corrientes 1234, floor 3, CABA, Buenos Aires, C1043", a.Line())

	assert.Equal(t, "Calle 7, La Plata", (&Address{Street: "Calle 7", City: "La Plata"}).Line())
}
