package retrieval

import "github.com/yungbote/neurobridge-assistant/internal/pkg/retry"

var noRetry = retry.Policy{Name: "none"}
