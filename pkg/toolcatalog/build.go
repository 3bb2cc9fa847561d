package toolcatalog

import "github.com/codeready-toolchain/tarsy-aurora/pkg/config"

// BuildDefault constructs the full catalog, then removes every tool
// whose domain is disabled in the tool-domain registry.
func BuildDefault(domains *config.ToolDomainRegistry) *Catalog {
	c := New()
	RegisterAWSTools(c)
	RegisterK8sTools(c)
	RegisterBitbucketTools(c)
	RegisterIaCTools(c)
	RegisterPipelineTools(c)
	RegisterTailscaleTools(c)

	if domains == nil {
		return c
	}
	for _, t := range c.All() {
		cfg, err := domains.Get(t.Domain)
		if err == nil && cfg.Disabled {
			delete(c.tools, t.Name)
		}
	}
	return c
}
