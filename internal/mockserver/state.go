package mockserver

import (
	"sync"
)

// AdminConfig is the body accepted by POST /admin/config. Absent fields are left unchanged.
type AdminConfig struct {
	SlowResponse     *bool `json:"slow_response"`
	ForceInvalidJSON *bool `json:"force_invalid_json"`
	ListChurn        *bool `json:"list_churn"`
}

// State holds the switches the admin endpoint toggles
type State struct {
	mu               sync.Mutex
	slowResponse     bool
	forceInvalidJSON bool
	listChurn        bool
	churn            map[string]int
}

// NewState creates a state with every switch off
func NewState() *State {
	return &State{churn: make(map[string]int)}
}

// Apply updates the switches present in cfg
func (s *State) Apply(cfg AdminConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.SlowResponse != nil {
		s.slowResponse = *cfg.SlowResponse
	}
	if cfg.ForceInvalidJSON != nil {
		s.forceInvalidJSON = *cfg.ForceInvalidJSON
	}
	if cfg.ListChurn != nil {
		s.listChurn = *cfg.ListChurn
		s.churn = make(map[string]int)
	}
}

// Snapshot returns the current switches
func (s *State) Snapshot() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]bool{
		"slow_response":      s.slowResponse,
		"force_invalid_json": s.forceInvalidJSON,
		"list_churn":         s.listChurn,
	}
}

// SlowResponse reports whether requests should be delayed
func (s *State) SlowResponse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slowResponse
}

// ConsumeInvalidJSON reports whether the next response must be garbage, and resets the switch
func (s *State) ConsumeInvalidJSON() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	forced := s.forceInvalidJSON
	s.forceInvalidJSON = false
	return forced
}

// Churn advances the change counter for a list and reports whether the
// dynamic entry is present on this call. Without list churn it is never present.
func (s *State) Churn(list string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.listChurn {
		return false
	}
	s.churn[list]++
	return s.churn[list]%2 == 1
}
