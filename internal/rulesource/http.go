package rulesource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"

	"github.com/homemade/remap/mapping"
)

// HTTPRequestTimeout is the default timeout for requests to a remote rule
// service.
const HTTPRequestTimeout = 30 * time.Second

type RemoteError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// HTTPLoader fetches rule set documents from GET {BaseURL}/rulesets. The
// response is either a JSON array of documents or an object with the
// array under "ruleSets" or "data".
type HTTPLoader struct {
	BaseURL   string
	Token     string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

func (l HTTPLoader) builder() *requests.Builder {
	b := requests.
		URL(l.BaseURL).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
	if l.Transport != nil {
		b = b.Transport(l.Transport)
	}
	return b
}

func (l HTTPLoader) Load(ctx context.Context) ([]mapping.RuleSetConfig, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	remoteError := RemoteError{}
	var body string
	b := l.builder().
		Path("rulesets").
		Accept("application/json").
		ToString(&body).
		ErrorJSON(&remoteError)
	if l.Token != "" {
		b = b.Bearer(l.Token)
	}
	if err := b.Fetch(ctx); err != nil {
		logger.Warn("remote rule service error", slog.String("message", remoteError.Message), slog.String("error", remoteError.Error))
		return nil, fmt.Errorf("failed to fetch rule sets %w", err)
	}
	if !gjson.Valid(body) {
		return nil, errors.New("failed to fetch rule sets: invalid json response")
	}

	list := gjson.Parse(body)
	if !list.IsArray() {
		for _, key := range []string{"ruleSets", "data"} {
			if r := list.Get(key); r.IsArray() {
				list = r
				break
			}
		}
	}
	if !list.IsArray() {
		return nil, errors.New("failed to fetch rule sets: response holds no rule set array")
	}

	var result []mapping.RuleSetConfig
	list.ForEach(func(_, item gjson.Result) bool {
		cfg, err := mapping.ParseRuleSetJSON([]byte(item.Raw))
		if err != nil {
			logger.Warn("skipping remote rule set", slog.String("code", item.Get("code").String()), slog.String("error", err.Error()))
			return true
		}
		result = append(result, cfg)
		return true
	})
	return result, nil
}
