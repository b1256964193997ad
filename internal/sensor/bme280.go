package sensor

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// senser is the subset of bmxx80.Dev used here.
type senser interface {
	Sense(e *physic.Env) error
}

// BME280 adapts a periph environmental sensor to WeatherSource.
type BME280 struct {
	dev senser
}

// NewBME280 wraps an opened bmxx80 device.
func NewBME280(dev senser) *BME280 {
	return &BME280{dev: dev}
}

// ReadWeather performs one forced conversion.
func (b *BME280) ReadWeather() (Weather, error) {
	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return Weather{}, errors.Wrap(err, "bme280: sense")
	}
	return envToWeather(env), nil
}

func envToWeather(env physic.Env) Weather {
	return Weather{
		Pressure:    float64(env.Pressure) / float64(100*physic.Pascal),
		Temperature: env.Temperature.Celsius(),
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
	}
}
