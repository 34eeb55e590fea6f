//go:build unit

package circuitbreaker

import "github.com/sony/gobreaker"

func gobreakerCounts(requests, failures, consecutive uint32) gobreaker.Counts {
	return gobreaker.Counts{
		Requests:            requests,
		TotalFailures:       failures,
		ConsecutiveFailures: consecutive,
	}
}
