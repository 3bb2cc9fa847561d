package ingest

import "fmt"

// Normalizer reduces one source's webhook payload to a NormalizedAlert.
type Normalizer func(payload []byte) (NormalizedAlert, error)

// Normalizers maps each supported source name to its handler, used by
// pkg/api to dispatch /webhooks/:source without a source-specific
// switch at the HTTP layer.
var Normalizers = map[string]Normalizer{
	"pagerduty": NormalizePagerDuty,
	"grafana":   NormalizeGrafana,
	"datadog":   NormalizeDatadog,
	"netdata":   NormalizeNetdata,
	"splunk":    NormalizeSplunk,
	"dynatrace": NormalizeDynatrace,
	"jenkins":   NormalizeJenkins,
}

// Normalize dispatches to the registered normalizer for source.
func Normalize(source string, payload []byte) (NormalizedAlert, error) {
	fn, ok := Normalizers[source]
	if !ok {
		return NormalizedAlert{}, fmt.Errorf("ingest: unknown source %q", source)
	}
	return fn(payload)
}
