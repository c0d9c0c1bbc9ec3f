// Package vitals serves simulated patient vital sign readings for the
// dashboard's monitoring widget.
package vitals

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// Reading is one sample of the monitored vitals. BloodPressure is the usual
// systolic/diastolic display string.
type Reading struct {
	HeartRate       int     `json:"heart_rate"`
	BloodPressure   string  `json:"blood_pressure"`
	Temperature     float64 `json:"temperature"`
	SpO2            int     `json:"spo2"`
	RespirationRate int     `json:"respiration_rate"`
	Timestamp       int64   `json:"timestamp"`
}

// Source produces vital sign readings.
type Source interface {
	Read() Reading
}

// SimulatedSource generates readings inside normal adult ranges. Real device
// integration would replace this behind the same interface.
type SimulatedSource struct {
	rng *rand.Rand
	now func() time.Time
}

// NewSimulatedSource seeds a generator. A zero seed uses the clock.
func NewSimulatedSource(seed int64) *SimulatedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedSource{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

func (s *SimulatedSource) Read() Reading {
	systolic := 100 + s.rng.Intn(21)  // 100-120
	diastolic := 60 + s.rng.Intn(21)  // 60-80
	temperature := 97.0 + s.rng.Float64()*2.5
	return Reading{
		HeartRate:       65 + s.rng.Intn(36), // 65-100
		BloodPressure:   fmt.Sprintf("%d/%d", systolic, diastolic),
		Temperature:     float64(int(temperature*10)) / 10,
		SpO2:            95 + s.rng.Intn(6),  // 95-100
		RespirationRate: 12 + s.rng.Intn(9),  // 12-20
		Timestamp:       s.now().Unix(),
	}
}

// Handler serves the vitals endpoint.
type Handler struct {
	source Source
}

func NewHandler(source Source) *Handler {
	if source == nil {
		source = NewSimulatedSource(0)
	}
	return &Handler{source: source}
}

// HandleGet returns a fresh reading.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.source.Read())
}
