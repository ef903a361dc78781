// Package overseerr provides a client for the Jellyseerr/Overseerr API.
//
// Both servers share the same /api/v1 surface. This package implements the
// subset the bridge needs: title search, request submission, request status
// changes and the counters behind the request and issue sensors.
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	client, err := overseerr.NewClient(
//		"http://seerr.local:5055",
//		"your-api-key",
//		logger,
//		overseerr.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	hits, err := client.Search(ctx, "Dune", overseerr.MediaTypeMovie)
//	if err == nil && len(hits) > 0 {
//		err = client.Request(ctx, hits[0].ID, overseerr.MediaTypeMovie, overseerr.RequestOptions{})
//	}
//
// # Authentication
//
// An API key is sent as the X-Api-Key header. Without one, WithCredentials
// signs in through /auth/local and keeps the session cookie.
//
// # Error Handling
//
// Every failed call returns a *ServiceError, which matches ErrRemoteService:
//
//	if errors.Is(err, overseerr.ErrRemoteService) {
//		var svcErr *overseerr.ServiceError
//		if errors.As(err, &svcErr) && svcErr.IsUnauthorized() {
//			// Handle auth failure
//		}
//	}
//
// Calls are attempted once; nothing in this package retries.
package overseerr
