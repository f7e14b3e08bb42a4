package jsonld

// DefaultNamespaces returns the process-wide prefix table used to expand and
// compact CURIEs in resource bodies. It is built once and injected into
// Validator rather than consulted as a package-level global, following
// the "module-level singletons become process-wide configuration,
// constructed once and passed explicitly" rule.
func DefaultNamespaces() map[string]string {
	return map[string]string{
		"hydra":    "http://www.w3.org/ns/hydra/core#",
		"schema":   "http://schema.org/",
		"x402":     "https://x402.org/ns#",
		"czero":    "https://hyprcat.dev/ns/czero#",
		"prov":     "http://www.w3.org/ns/prov#",
		"did":      "https://www.w3.org/ns/did#",
		"cred":     "https://www.w3.org/2018/credentials#",
		"odrl":     "http://www.w3.org/ns/odrl/2/",
		"hyprcat":  "https://hyprcat.dev/ns/core#",
	}
}
