// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(pool))
//	checker.AddCheck("cache", handlers.NewCacheCheck(redisClient))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Webhook Handling
//
// The WebhookHandler interface processes graded attempt deliveries from the
// grading platform:
//
//	handler := handlers.NewAttemptWebhookHandler(processCompletionHandler)
//	result, err := handler.HandleAttemptResult(ctx, payload)
//
// The completion pipeline is idempotent, so a re-delivered payload is safe:
// the second delivery records the attempt and grants nothing.
//
// # Middleware
//
// The middleware here is the server-agnostic part of the chain. The server
// composes it with its own request ID, logging, recovery and CORS layers:
//
//	handler := handlers.Chain(
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1<<20),
//	)(mux)
package handlers
