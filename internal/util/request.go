package util

import (
	"fmt"
	"math/rand"
)

// GenerateRequestID creates memorable request identifiers so a log line can
// be matched by eye when tailing. Collisions across a session are unlikely
// enough for a single-client proxy.
func GenerateRequestID() string {
	actions := []string{
		"sneaking", "shouting", "bartering", "lockpicking", "brawling",
		"enchanting", "smithing", "wandering", "adventuring", "questing",
		"dueling", "feasting", "scheming", "praying", "hunting",
	}
	folk := []string{
		"nord", "khajiit", "argonian", "breton", "redguard",
		"dunmer", "altmer", "bosmer", "orsimer", "imperial",
		"jarl", "thane", "courier", "greybeard", "housecarl",
	}

	who := folk[rand.Intn(len(folk))]
	what := actions[rand.Intn(len(actions))]
	suffix := fmt.Sprintf("%04x", rand.Intn(65536))

	return fmt.Sprintf("%s-%s-%s", what, who, suffix)
}
