package heartbeat

import (
	"encoding/json"
	"fmt"
)

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case Config:
		return v, nil
	case json.RawMessage:
		return cfg, json.Unmarshal(v, &cfg)
	case []byte:
		return cfg, json.Unmarshal(v, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
}
