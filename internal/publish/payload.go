// Package publish sends finished readings to the reading API.
package publish

import (
	"encoding/json"

	"github.com/sweeney/enviro-sensor/internal/logic"
)

// Payload is the flat JSON record accepted by the reading API.
type Payload struct {
	ID          int     `json:"id"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	VOC         float64 `json:"voc"`
	UV          float64 `json:"uv"`
	Light       float64 `json:"light"`
}

// FormatPayload serialises a reading with every scalar at 2-decimal precision.
func FormatPayload(r logic.Reading) ([]byte, error) {
	return json.Marshal(Payload{
		ID:          r.ID,
		Temperature: logic.Round(r.Temperature),
		Humidity:    logic.Round(r.Humidity),
		Pressure:    logic.Round(r.Pressure),
		VOC:         logic.Round(r.VOC),
		UV:          logic.Round(r.UV),
		Light:       logic.Round(r.Light),
	})
}
