package protocol

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// CapabilityManager holds the capability map a server advertises
type CapabilityManager struct {
	logger             *logrus.Logger
	serverCapabilities map[string]interface{}
	mu                 sync.RWMutex
}

// NewCapabilityManager creates a capability manager advertising every feature area
func NewCapabilityManager(logger *logrus.Logger) *CapabilityManager {
	cm := &CapabilityManager{logger: logger}
	cm.initializeServerCapabilities()
	return cm
}

// initializeServerCapabilities sets up the default server capabilities
func (cm *CapabilityManager) initializeServerCapabilities() {
	cm.serverCapabilities = map[string]interface{}{
		"prompts": map[string]interface{}{
			"listChanged": true,
		},
		"resources": map[string]interface{}{
			"subscribe":   true,
			"listChanged": true,
			"templates":   true,
		},
		"tools": map[string]interface{}{
			"listChanged": true,
		},
		"completion": map[string]interface{}{
			"complete": true,
		},
	}

	cm.logger.Debug("Initialized server capabilities")
}

// GetCapabilities returns a deep copy of the advertised capabilities
func (cm *CapabilityManager) GetCapabilities() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return copyMap(cm.serverCapabilities)
}

// UpdateServerCapability replaces one feature area; a nil config withdraws it
func (cm *CapabilityManager) UpdateServerCapability(capability string, config map[string]interface{}) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if config == nil {
		delete(cm.serverCapabilities, capability)
	} else {
		cm.serverCapabilities[capability] = copyMap(config)
	}

	cm.logger.WithField("capability", capability).Info("Updated server capability")
}

// Declares reports whether feature.flag is advertised as true
func (cm *CapabilityManager) Declares(feature, flag string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	section, ok := cm.serverCapabilities[feature].(map[string]interface{})
	if !ok {
		return false
	}
	enabled, _ := section[flag].(bool)
	return enabled
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = copyMap(nested)
		} else {
			out[k] = v
		}
	}
	return out
}
