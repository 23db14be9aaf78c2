package models

type WeatherData struct {
	City         string  `json:"city"`
	TemperatureC float64 `json:"temperatureC"`
	TemperatureF float64 `json:"temperatureF"`
	Humidity     int     `json:"humidity"`
	Condition    string  `json:"condition"`
}
