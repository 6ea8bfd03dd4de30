package bigquery

import (
	"errors"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsRetryable reports whether an insert failure is transient. Batches with
// per-row errors are retryable only when every row failed transiently.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var putErr bigquery.PutMultiError
	if errors.As(err, &putErr) {
		if len(putErr) == 0 {
			return false
		}
		for i := range putErr {
			if !allRetryable(putErr[i].Errors) {
				return false
			}
		}
		return true
	}

	var multi bigquery.MultiError
	if errors.As(err, &multi) {
		return allRetryable(multi)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal,
			codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

func allRetryable(errs bigquery.MultiError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, inner := range errs {
		if !IsRetryable(inner) {
			return false
		}
	}
	return true
}
