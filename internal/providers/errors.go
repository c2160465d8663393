package providers

import "strings"

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "timeout"), strings.Contains(e, "deadline"), strings.Contains(e, "temporarily"),
		strings.Contains(e, "unavailable"), strings.Contains(e, "connection re"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// IsRetryable reports whether the embedder should retry the same batch.
func IsRetryable(t ErrorType) bool {
	return t == ErrorRate || t == ErrorTransient
}
