package gallery

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
)

var (
	demoNames = []string{
		"John Doe", "Jane Smith", "Mike Johnson", "Sarah Wilson",
		"David Brown", "Lisa Davis", "Tom Miller", "Emma Garcia",
	}
	demoLocations = []string{
		"New York", "Los Angeles", "Chicago", "Houston",
		"Phoenix", "Philadelphia", "San Antonio", "San Diego",
	}
	demoGenders     = []string{"male", "female"}
	demoEthnicities = []string{"Caucasian", "African American", "Hispanic", "Asian", "Other"}
)

// DemoSource is the source tag of generated entries.
const DemoSource = "public_database"

// Generate builds n demonstration entries with random descriptors of length
// dim in [-1, 1). The same seed and now always produce the same gallery.
// Capture times fall within the 30 days before now.
func Generate(n, dim int, seed uint64, now time.Time) []facematch.GalleryEntry {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	entries := make([]facematch.GalleryEntry, n)

	for i := range entries {
		d := make(facematch.Descriptor, dim)
		for j := range d {
			d[j] = float32(rng.Float64()*2 - 1)
		}
		age := time.Duration(rng.Int64N(int64(30 * 24 * time.Hour)))

		entries[i] = facematch.GalleryEntry{
			IdentityID:  fmt.Sprintf("face_%d", i+1),
			DisplayName: demoNames[i%len(demoNames)],
			Location:    demoLocations[i%len(demoLocations)],
			SourceTag:   DemoSource,
			CapturedAt:  now.Add(-age).UTC().Truncate(time.Second),
			Descriptor:  d,
			Demographics: facematch.Demographics{
				AgeEstimate:    20 + rng.IntN(50),
				GenderLabel:    demoGenders[rng.IntN(len(demoGenders))],
				EthnicityLabel: demoEthnicities[rng.IntN(len(demoEthnicities))],
			},
		}
	}
	return entries
}
