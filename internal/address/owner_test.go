package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerOccupied_FreeFormLine(t *testing.T) {
	m := Mailing{Line: "100 Main St, Syracuse, NY 13201"}
	assert.True(t, OwnerOccupied("100 Main St", m))
	assert.Equal(t, "13201", TrustedZip("100 Main St", m))
}

func TestOwnerOccupied_OtherAddress(t *testing.T) {
	m := Mailing{Line: "1 Other Ave, Miami, FL 33101"}
	assert.False(t, OwnerOccupied("100 Main St", m))
	assert.Equal(t, "", TrustedZip("100 Main St", m))
}

func TestOwnerOccupied_Structured(t *testing.T) {
	m := Mailing{Number: "100", Street: "MAIN", Suffix: "STREET", City: "Syracuse", State: "NY", Zip: "13201-4400"}
	assert.True(t, OwnerOccupied("100 Main St", m))
	assert.Equal(t, "13201", TrustedZip("100 Main St", m))
}

func TestOwnerOccupied_OutOfStateSameStreet(t *testing.T) {
	m := Mailing{Number: "100", Street: "Main", Suffix: "St", State: "FL", Zip: "33101"}
	assert.False(t, OwnerOccupied("100 Main St", m))
}

func TestOwnerOccupied_RequiresHouseNumber(t *testing.T) {
	m := Mailing{Street: "Main", Suffix: "St", State: "NY", Zip: "13201"}
	assert.False(t, OwnerOccupied("Main St", m))
}

func TestOwnerOccupied_Empty(t *testing.T) {
	assert.False(t, OwnerOccupied("100 Main St", Mailing{}))
	assert.True(t, Mailing{}.Empty())
}

func TestTrustedZip_MalformedZip(t *testing.T) {
	m := Mailing{Number: "100", Street: "Main", Suffix: "St", State: "NY", Zip: "132"}
	assert.True(t, OwnerOccupied("100 Main St", m))
	assert.Equal(t, "", TrustedZip("100 Main St", m))
}
