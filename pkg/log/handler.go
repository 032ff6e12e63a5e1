package log

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// attachError adds err under key, its structured details when the error
// chain carries a zerolog.LogObjectMarshaler, and the cockroachdb stack trace.
func attachError(event *zerolog.Event, key string, err error) {
	event.AnErr(key, err)

	var marshaler zerolog.LogObjectMarshaler
	if errors.As(err, &marshaler) {
		event.Object(key+"_detail", marshaler)
	}

	if stacktrace := extractStacktrace(err); stacktrace != "" {
		event.Str(StacktraceAttrKey, stacktrace)
	}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
