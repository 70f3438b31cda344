package envconfig

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
)

func Bool(k string) func() bool {
	return func() bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}

			return b
		}

		return false
	}
}

func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}

		return defaultValue
	}
}

var (
	// NoPrune disables pruning of incomplete downloads on startup.
	NoPrune = Bool("STRATA_NOPRUNE")
	// Threads caps worker parallelism in the cpu backend. Zero means one worker per core.
	Threads = Uint("STRATA_THREADS", 0)
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns the currently known set of environment variables, their values
// and usage descriptions.
func AsMap() map[string]EnvVar {
	ret := map[string]EnvVar{
		"STRATA_DEBUG":   {"STRATA_DEBUG", LogLevel(), "Show additional debug information (e.g. STRATA_DEBUG=1)"},
		"STRATA_HOST":    {"STRATA_HOST", Host(), "IP Address for the strata server (default 127.0.0.1:6464)"},
		"STRATA_MODELS":  {"STRATA_MODELS", Models(), "The path to the models directory"},
		"STRATA_NOPRUNE": {"STRATA_NOPRUNE", NoPrune(), "Do not prune incomplete downloads on startup"},
		"STRATA_ORIGINS": {"STRATA_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"STRATA_THREADS": {"STRATA_THREADS", Threads(), "Number of worker goroutines for tensor compute (default: number of cores)"},

		"HTTP_PROXY":  {"HTTP_PROXY", String("HTTP_PROXY")(), "HTTP proxy"},
		"HTTPS_PROXY": {"HTTPS_PROXY", String("HTTPS_PROXY")(), "HTTPS proxy"},
		"NO_PROXY":    {"NO_PROXY", String("NO_PROXY")(), "No proxy"},
	}

	if runtime.GOOS != "windows" {
		ret["http_proxy"] = EnvVar{"http_proxy", String("http_proxy")(), "HTTP proxy"}
		ret["https_proxy"] = EnvVar{"https_proxy", String("https_proxy")(), "HTTPS proxy"}
		ret["no_proxy"] = EnvVar{"no_proxy", String("no_proxy")(), "No proxy"}
	}

	return ret
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}

	return vals
}
