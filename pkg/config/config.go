package config

// All configuration comes from the process environment.  Load reads it once
// at startup through viper and returns a validated struct; malformed values
// abort startup instead of silently falling back to defaults.

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
	"github.com/theapemachine/a2a-bridge/pkg/a2a"
)

// Search modes accepted by the vector-store search endpoint.
const (
	SearchModeVector  = "vector"
	SearchModeKeyword = "keyword"
	SearchModeHybrid  = "hybrid"
)

// MCPServer points at one MCP server whose tools are discovered at startup.
// Header values may reference environment variables as ${NAME}.
type MCPServer struct {
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Config is the full runtime configuration of the bridge.
type Config struct {
	AgentName        string
	AgentDescription string
	AgentVersion     string
	AgentURL         string
	Host             string
	Port             int
	Skills           []a2a.AgentSkill

	LlamaStackURL   string
	LlamaStackModel string
	SystemPrompt    string

	VectorStoreID string
	SearchMode    string
	MaxResults    int

	MLflowTrackingURI string
	MLflowExperiment  string
	S3Endpoint        string
	S3AccessKey       string
	S3SecretKey       string
	S3UseSSL          bool

	MCPServers []MCPServer
}

// TrackingEnabled reports whether MLflow logging is configured at all.
func (cfg *Config) TrackingEnabled() bool {
	return cfg.MLflowTrackingURI != ""
}

/*
Load reads the environment and returns a validated configuration.
*/
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("AGENT_NAME", "MLflow A2A Agent")
	v.SetDefault("AGENT_DESCRIPTION", "An AI agent powered by Llama Stack")
	v.SetDefault("AGENT_VERSION", "1.0.0")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "8080")
	v.SetDefault("SKILLS_JSON", `[{"id":"answer","name":"Answer Questions","description":"Answer user questions"}]`)
	v.SetDefault("LLAMASTACK_URL", "http://localhost:8321")
	v.SetDefault("LLAMASTACK_MODEL", "meta-llama/Llama-3.2-3B-Instruct")
	v.SetDefault("SYSTEM_PROMPT", "You are a helpful AI assistant.")
	v.SetDefault("SEARCH_MODE", SearchModeHybrid)
	v.SetDefault("MAX_RESULTS", "5")
	v.SetDefault("MLFLOW_EXPERIMENT", "a2a-bridge")
	v.SetDefault("MCP_SERVERS_JSON", "[]")

	port, err := strictInt(v, "PORT")
	if err != nil {
		return nil, err
	}

	maxResults, err := strictInt(v, "MAX_RESULTS")
	if err != nil {
		return nil, err
	}

	searchMode := v.GetString("SEARCH_MODE")

	switch searchMode {
	case SearchModeVector, SearchModeKeyword, SearchModeHybrid:
	default:
		return nil, fmt.Errorf("invalid SEARCH_MODE %q: want vector, keyword or hybrid", searchMode)
	}

	var skills []a2a.AgentSkill

	if err := json.Unmarshal([]byte(v.GetString("SKILLS_JSON")), &skills); err != nil {
		return nil, fmt.Errorf("invalid SKILLS_JSON: %w", err)
	}

	servers, err := parseMCPServers(v.GetString("MCP_SERVERS_JSON"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AgentName:        v.GetString("AGENT_NAME"),
		AgentDescription: v.GetString("AGENT_DESCRIPTION"),
		AgentVersion:     v.GetString("AGENT_VERSION"),
		Host:             v.GetString("HOST"),
		Port:             port,
		Skills:           skills,

		LlamaStackURL:   v.GetString("LLAMASTACK_URL"),
		LlamaStackModel: v.GetString("LLAMASTACK_MODEL"),
		SystemPrompt:    v.GetString("SYSTEM_PROMPT"),

		VectorStoreID: v.GetString("VECTOR_STORE_ID"),
		SearchMode:    searchMode,
		MaxResults:    maxResults,

		MLflowTrackingURI: v.GetString("MLFLOW_TRACKING_URI"),
		MLflowExperiment:  v.GetString("MLFLOW_EXPERIMENT"),
		S3Endpoint:        v.GetString("MLFLOW_S3_ENDPOINT_URL"),
		S3AccessKey:       v.GetString("AWS_ACCESS_KEY_ID"),
		S3SecretKey:       v.GetString("AWS_SECRET_ACCESS_KEY"),
		S3UseSSL:          v.GetBool("MLFLOW_S3_USE_SSL"),

		MCPServers: servers,
	}

	cfg.AgentURL = agentURL(v, cfg.Port)

	return cfg, nil
}

/*
agentURL derives the advertised base URL.  Inside Kubernetes the service DNS
name wins; AGENT_URL overrides everything.
*/
func agentURL(v *viper.Viper, port int) string {
	if override := v.GetString("AGENT_URL"); override != "" {
		return override
	}

	hostname := v.GetString("HOSTNAME")
	if hostname == "" {
		hostname = "localhost"
	}

	if v.GetString("KUBERNETES_SERVICE_HOST") != "" {
		service := v.GetString("SERVICE_NAME")
		if service == "" {
			service = hostname
		}

		namespace := v.GetString("NAMESPACE")
		if namespace == "" {
			namespace = "default"
		}

		return fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", service, namespace, port)
	}

	return fmt.Sprintf("http://%s:%d", hostname, port)
}

func strictInt(v *viper.Viper, key string) (int, error) {
	raw := v.GetString(key)

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, raw)
	}

	return n, nil
}

func parseMCPServers(raw string) ([]MCPServer, error) {
	// Substitute ${VAR} references before decoding so tokens never have to
	// live in the JSON itself.
	expanded := os.Expand(raw, os.Getenv)

	var servers []MCPServer

	if err := json.Unmarshal([]byte(expanded), &servers); err != nil {
		return nil, fmt.Errorf("invalid MCP_SERVERS_JSON: %w", err)
	}

	return servers, nil
}
