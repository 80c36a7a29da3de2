package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_http_requests_total",
			Help: "Counter for HTTP requests by path, method and status.",
		},
		[]string{"path", "method", "status"},
	)

	// BidsAccepted counts bids that repointed a listing's current price.
	BidsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_bids_accepted_total",
			Help: "Counter for accepted bids.",
		})

	// BidsRejected counts bids refused by the bidding engine.
	BidsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_bids_rejected_total",
			Help: "Counter for rejected bids by reason.",
		},
		[]string{"reason"},
	)

	// AuctionsClosed counts open-to-closed lifecycle transitions.
	AuctionsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_auctions_closed_total",
			Help: "Counter for auctions closed.",
		})
)

// MetricsRecorder counts every routed request. Unrouted paths are skipped to
// keep the label set bounded.
func MetricsRecorder() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			return
		}
		requestsTotal.WithLabelValues(path, ctx.Request.Method, strconv.Itoa(ctx.Writer.Status())).Inc()
	}
}
