package ports

// Metrics records handshake and webhook outcomes
type Metrics interface {
	ObserveHandshake(stage, outcome string)
	ObserveWebhook(topic, outcome string)
	ObserveLink(outcome string)
}

// NopMetrics discards all observations
type NopMetrics struct{}

func (NopMetrics) ObserveHandshake(string, string) {}
func (NopMetrics) ObserveWebhook(string, string)   {}
func (NopMetrics) ObserveLink(string)              {}
