package providers

import (
	"context"
	"fmt"
	"strings"

	"ChainPulse/internal/domain/service"
	"ChainPulse/pkg/config"
)

// socialVariant describes how one network's bridge is addressed.
type socialVariant struct {
	sentimentPath string
	signalsPath   string
	query         func(token string) string
	auth          func(key string) (header, value string)
}

var socialVariants = map[string]socialVariant{
	"twitter": {
		sentimentPath: "/2/sentiment",
		signalsPath:   "/2/signals",
		query:         func(t string) string { return "$" + strings.ToUpper(t) },
		auth:          func(k string) (string, string) { return "Authorization", "Bearer " + k },
	},
	"discord": {
		sentimentPath: "/channels/sentiment",
		signalsPath:   "/channels/signals",
		query:         strings.ToUpper,
		auth:          func(k string) (string, string) { return "Authorization", "Bot " + k },
	},
	"telegram": {
		sentimentPath: "/groups/sentiment",
		signalsPath:   "/groups/signals",
		query:         strings.ToUpper,
		auth:          func(k string) (string, string) { return "X-Api-Key", k },
	},
	"http": {
		sentimentPath: "/sentiment",
		signalsPath:   "/signals",
		query:         strings.ToUpper,
		auth:          func(k string) (string, string) { return "Authorization", "Bearer " + k },
	},
}

// Social is a sentiment bridge for one social network.
type Social struct {
	*HTTPServiceBase
	name    string
	variant socialVariant
}

// NewSocialProviders builds one provider per configured source. An unknown
// kind is a configuration error.
func NewSocialProviders(sources []config.SocialSource, s ClientSettings) ([]service.SocialProvider, error) {
	out := make([]service.SocialProvider, 0, len(sources))
	for _, src := range sources {
		v, ok := socialVariants[src.Kind]
		if !ok {
			return nil, fmt.Errorf("social source %s: unknown kind %q", src.Name, src.Kind)
		}
		var headers map[string]string
		if src.APIKey != "" {
			h, val := v.auth(src.APIKey)
			headers = map[string]string{h: val}
		}
		out = append(out, &Social{
			HTTPServiceBase: NewHTTPServiceBase(src.URL, s, headers),
			name:            src.Name,
			variant:         v,
		})
	}
	return out, nil
}

func (s *Social) Name() string { return s.name }

// Sentiment is clamped to [0, 1].
func (s *Social) Sentiment(ctx context.Context, token string) (float64, error) {
	var r struct {
		Score float64 `json:"score"`
	}
	q := map[string][]string{"q": {s.variant.query(token)}}
	if err := s.GetJSON(ctx, s.variant.sentimentPath, q, &r); err != nil {
		return 0, err
	}
	return clamp01(r.Score), nil
}

func (s *Social) SocialSignals(ctx context.Context, token string) ([]string, error) {
	var r struct {
		Signals []string `json:"signals"`
	}
	q := map[string][]string{"q": {s.variant.query(token)}}
	if err := s.GetJSON(ctx, s.variant.signalsPath, q, &r); err != nil {
		return nil, err
	}
	return r.Signals, nil
}
