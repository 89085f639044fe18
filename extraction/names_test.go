package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPersonName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Dr. Andrea Müller", true},
		{"Andrea Müller", true},
		{"Prof. Dr. Hans-Peter Schmidt, LL.M.", true},
		{"Ludwig van Beethoven", true},
		{"Jean-Luc Picard", true},
		{"Siobhan O'Neill", true},
		{"Reserve Seat", false},
		{"Privacy Summit", false},
		{"Register Now", false},
		{"Kartellrecht Konferenz", false},
		{"Learn More", false},
		{"Lisa Day", true},
		{"Mark Read", true},
		{"Anna Board", true},
		{"John Book", true},
		{"Jane Show", true},
		{"Ana Home", true},
		{"Klaus Mehr", true},
		{"Peter Sign", true},
		{"Book Now", false},
		{"Read More", false},
		{"Sign Up", false},
		{"Show All", false},
		{"Mehr Infos", false},
		{"Live Stream", false},
		{"Home Day", false},
		{"Madonna", false},
		{"john smith", false},
		{"Anna Schmidt (Siemens)", false},
		{"Anna Schmidt 2025", false},
		{"Alpha Beta Gamma Delta Epsilon", false},
		{"", false},
		{"Anna " + strings.Repeat("Verylongname", 5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPersonName(tt.name, DefaultConfig().MaxNameLength))
		})
	}
}

func TestComparableName_IgnoresHonorificsAndDiacritics(t *testing.T) {
	assert.Equal(t, "andrea muller", comparableName("Dr. Andrea Müller"))
	assert.Equal(t, "andrea muller", comparableName("  andrea   MÜLLER "))
	assert.Equal(t, "hans-peter schmidt", comparableName("Prof. Dr. Hans-Peter Schmidt, LL.M."))
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, NameSimilarity("Dr. Andrea Müller", "Andrea Muller"))
	assert.InDelta(t, 1-1.0/14, NameSimilarity("Andrea Müller", "Andrea Mueller"), 1e-9)
	assert.Less(t, NameSimilarity("Anna Schmidt", "Hans Weber"), 0.5)
	assert.Equal(t, 1.0, NameSimilarity("", ""))
}
