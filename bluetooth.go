package gancube

import (
	"strings"

	"github.com/google/uuid"
)

// Generation identifies a GAN cube hardware generation by the GATT service
// and notification characteristic it exposes.
type Generation struct {
	Name          string
	ServiceUUID   uuid.UUID
	StateCharUUID uuid.UUID
}

// GAN BLE service and state characteristic UUIDs.
var (
	GanGen2ServiceUUID   = uuid.MustParse("6e400001-b5a3-f393-e0a9-e50e24dc4179")
	GanGen2StateCharUUID = uuid.MustParse("28be4cb6-cd67-11e9-a32f-2a2ae2dbcce4")
	GanGen3ServiceUUID   = uuid.MustParse("8653000a-43e6-47b7-9cb0-5fc21d4ae340")
	GanGen3StateCharUUID = uuid.MustParse("8653000b-43e6-47b7-9cb0-5fc21d4ae340")
	GanGen4ServiceUUID   = uuid.MustParse("00000010-0000-fff7-fff6-fff5fff4fff0")
	GanGen4StateCharUUID = uuid.MustParse("0000fff6-0000-1000-8000-00805f9b34fb")
)

var generations = []Generation{
	{Name: "gen2", ServiceUUID: GanGen2ServiceUUID, StateCharUUID: GanGen2StateCharUUID},
	{Name: "gen3", ServiceUUID: GanGen3ServiceUUID, StateCharUUID: GanGen3StateCharUUID},
	{Name: "gen4", ServiceUUID: GanGen4ServiceUUID, StateCharUUID: GanGen4StateCharUUID},
}

// Generations returns the supported hardware generations.
func Generations() []Generation {
	out := make([]Generation, len(generations))
	copy(out, generations)
	return out
}

// GenerationForCharacteristic returns the generation whose state
// characteristic is u.
func GenerationForCharacteristic(u uuid.UUID) (Generation, bool) {
	for _, g := range generations {
		if g.StateCharUUID == u {
			return g, true
		}
	}
	return Generation{}, false
}

// GenerationForService returns the generation whose primary service is u.
func GenerationForService(u uuid.UUID) (Generation, bool) {
	for _, g := range generations {
		if g.ServiceUUID == u {
			return g, true
		}
	}
	return Generation{}, false
}

// DefaultNamePrefixes are the advertised local-name prefixes of supported
// cubes.
var DefaultNamePrefixes = []string{"GAN", "MG", "AiCube"}

// IsCubeName reports whether an advertised name starts with one of the
// prefixes. DefaultNamePrefixes is used when none are given.
func IsCubeName(name string, prefixes ...string) bool {
	if len(prefixes) == 0 {
		prefixes = DefaultNamePrefixes
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
