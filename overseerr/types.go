package overseerr

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus represents the status of a media request
type RequestStatus int

const (
	// RequestStatusUnknown represents an unknown request status
	RequestStatusUnknown RequestStatus = iota
	// RequestStatusPending indicates a pending request
	RequestStatusPending
	// RequestStatusApproved indicates an approved request
	RequestStatusApproved
	// RequestStatusDeclined indicates a declined request
	RequestStatusDeclined
	// RequestStatusFailed indicates a failed request
	RequestStatusFailed
	// RequestStatusCompleted indicates a completed request
	RequestStatusCompleted
)

// String returns the string representation of a RequestStatus
func (rs RequestStatus) String() string {
	switch rs {
	case RequestStatusPending:
		return "PENDING"
	case RequestStatusApproved:
		return "APPROVED"
	case RequestStatusDeclined:
		return "DECLINED"
	case RequestStatusFailed:
		return "FAILED"
	case RequestStatusCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// MediaStatus represents the availability of a media item
type MediaStatus int

const (
	MediaStatusUnknown MediaStatus = iota + 1
	MediaStatusPending
	MediaStatusProcessing
	MediaStatusPartiallyAvailable
	MediaStatusAvailable
	MediaStatusBlacklisted
	MediaStatusDeleted
)

// String returns the string representation of a MediaStatus
func (ms MediaStatus) String() string {
	switch ms {
	case MediaStatusPending:
		return "PENDING"
	case MediaStatusProcessing:
		return "PROCESSING"
	case MediaStatusPartiallyAvailable:
		return "PARTIALLY_AVAILABLE"
	case MediaStatusAvailable:
		return "AVAILABLE"
	case MediaStatusBlacklisted:
		return "BLACKLISTED"
	case MediaStatusDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// RequestAction is the status transition accepted by the request status endpoint
type RequestAction string

const (
	ActionApprove RequestAction = "approve"
	ActionDecline RequestAction = "decline"
	ActionPending RequestAction = "pending"
)

// ParseRequestAction maps a user supplied status onto a RequestAction.
// Both the verb ("approve") and the state ("approved") are accepted.
func ParseRequestAction(s string) (RequestAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return ActionApprove, nil
	case "decline", "declined":
		return ActionDecline, nil
	case "pending":
		return ActionPending, nil
	}
	return "", fmt.Errorf("unknown request status %q", s)
}

// MediaType represents the type of media
type MediaType string

const (
	// MediaTypeMovie represents a movie
	MediaTypeMovie MediaType = "movie"
	// MediaTypeTV represents a TV show
	MediaTypeTV MediaType = "tv"
	// MediaTypeMusic represents a music album (legacy servers only)
	MediaTypeMusic MediaType = "music"
)

// ParseMediaType validates a movie or tv media type
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaTypeMovie:
		return MediaTypeMovie, nil
	case MediaTypeTV:
		return MediaTypeTV, nil
	}
	return "", fmt.Errorf("unknown media type %q", s)
}

// User represents a Seerr user
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username,omitempty"`
	PlexUsername string `json:"plexUsername,omitempty"`
	DisplayName  string `json:"displayName"`
	Avatar       string `json:"avatar,omitempty"`
}

// GetDisplayName returns the best available display name for the user
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	if u.PlexUsername != "" {
		return u.PlexUsername
	}
	return u.Email
}

// Media represents media information in Seerr
type Media struct {
	ID        int         `json:"id"`
	TmdbID    int         `json:"tmdbId"`
	TvdbID    int         `json:"tvdbId,omitempty"`
	ImdbID    string      `json:"imdbId,omitempty"`
	Status    MediaStatus `json:"status"`
	Status4k  MediaStatus `json:"status4k"`
	MediaType MediaType   `json:"mediaType"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// MediaRequest represents a media request in Seerr
type MediaRequest struct {
	ID            int           `json:"id"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Type          MediaType     `json:"type"`
	Is4k          bool          `json:"is4k"`
	IsAutoRequest bool          `json:"isAutoRequest"`
	RequestedBy   User          `json:"requestedBy"`
	ModifiedBy    *User         `json:"modifiedBy,omitempty"`
	Media         Media         `json:"media"`
	Seasons       []Season      `json:"seasons,omitempty"`
}

// GetApprover returns the user who approved the request, if available
func (mr *MediaRequest) GetApprover() *User {
	if mr.ModifiedBy != nil && (mr.Status == RequestStatusApproved || mr.Status == RequestStatusCompleted) {
		return mr.ModifiedBy
	}
	return nil
}

// Summary flattens a request into the attribute map exposed on sensors
func (mr *MediaRequest) Summary() map[string]any {
	summary := map[string]any{
		"id":           mr.ID,
		"type":         string(mr.Type),
		"status":       mr.Status.String(),
		"media_status": mr.Media.Status.String(),
		"tmdb_id":      mr.Media.TmdbID,
		"is_4k":        mr.Is4k,
		"requested_by": mr.RequestedBy.GetDisplayName(),
		"requested_at": mr.CreatedAt.Format(time.RFC3339),
	}
	if approver := mr.GetApprover(); approver != nil {
		summary["approved_by"] = approver.GetDisplayName()
	}
	if len(mr.Seasons) > 0 {
		seasons := make([]int, 0, len(mr.Seasons))
		for _, s := range mr.Seasons {
			seasons = append(seasons, s.SeasonNumber)
		}
		summary["seasons"] = seasons
	}
	return summary
}

// Season represents a TV season request
type Season struct {
	ID           int           `json:"id"`
	SeasonNumber int           `json:"seasonNumber"`
	Status       RequestStatus `json:"status"`
}

// RequestsResponse represents the paginated response from the requests endpoint
type RequestsResponse struct {
	PageInfo PageInfo       `json:"pageInfo"`
	Results  []MediaRequest `json:"results"`
}

// HasMorePages checks if there are more pages to fetch
func (rr *RequestsResponse) HasMorePages() bool {
	return rr.PageInfo.Page < rr.PageInfo.Pages
}

// PageInfo contains pagination information
type PageInfo struct {
	Pages    int `json:"pages"`
	PageSize int `json:"pageSize"`
	Results  int `json:"results"`
	Page     int `json:"page"`
}

// SearchResult is a single hit from the search endpoint
type SearchResult struct {
	ID           int       `json:"id"`
	MediaType    MediaType `json:"mediaType"`
	Title        string    `json:"title,omitempty"`
	Name         string    `json:"name,omitempty"`
	Overview     string    `json:"overview,omitempty"`
	ReleaseDate  string    `json:"releaseDate,omitempty"`
	FirstAirDate string    `json:"firstAirDate,omitempty"`
	Popularity   float64   `json:"popularity,omitempty"`
}

// DisplayTitle returns the movie title or the show name
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

type searchResponse struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
	Results      []SearchResult `json:"results"`
}

// Album is a music search hit on legacy servers
type Album struct {
	ForeignAlbumID string `json:"foreignAlbumId"`
	Title          string `json:"title"`
	ArtistName     string `json:"artistName,omitempty"`
}

// RequestOptions selects the shape of a request. At most one season flag is
// expected to be set; none means the latest season for tv.
type RequestOptions struct {
	Is4K         bool
	FirstSeason  bool
	LatestSeason bool
	AllSeasons   bool
}

type requestBody struct {
	MediaType MediaType `json:"mediaType"`
	MediaID   any       `json:"mediaId"`
	Is4K      bool      `json:"is4k,omitempty"`
	Seasons   any       `json:"seasons,omitempty"`
}

type tvDetails struct {
	ID      int `json:"id"`
	Seasons []struct {
		SeasonNumber int `json:"seasonNumber"`
	} `json:"seasons"`
}

// RequestCounts holds the tallies reported by the request sensors
type RequestCounts struct {
	Total      int `json:"total"`
	Movies     int `json:"movie"`
	TV         int `json:"tv"`
	Standard   int `json:"standard"`
	FourK      int `json:"4k"`
	Pending    int `json:"pending"`
	Approved   int `json:"approved"`
	Declined   int `json:"declined"`
	Processing int `json:"processing"`
	Available  int `json:"available"`
}

// Tally counts a set of requests by type, quality tier and status
func Tally(requests []MediaRequest) RequestCounts {
	var c RequestCounts
	for _, r := range requests {
		c.Total++
		switch r.Type {
		case MediaTypeMovie:
			c.Movies++
		case MediaTypeTV:
			c.TV++
		}
		if r.Is4k {
			c.FourK++
		} else {
			c.Standard++
		}
		switch r.Status {
		case RequestStatusPending:
			c.Pending++
		case RequestStatusApproved:
			c.Approved++
		case RequestStatusDeclined:
			c.Declined++
		}
		mediaStatus := r.Media.Status
		if r.Is4k {
			mediaStatus = r.Media.Status4k
		}
		switch mediaStatus {
		case MediaStatusProcessing:
			c.Processing++
		case MediaStatusAvailable:
			c.Available++
		}
	}
	return c
}

// IssueCounts mirrors the issue count endpoint
type IssueCounts struct {
	Total     int `json:"total"`
	Video     int `json:"video"`
	Audio     int `json:"audio"`
	Subtitles int `json:"subtitles"`
	Others    int `json:"others"`
	Open      int `json:"open"`
	Closed    int `json:"closed"`
}

// Attributes returns the counts keyed the way the issues sensor exposes them
func (ic IssueCounts) Attributes() map[string]any {
	return map[string]any{
		"total":     ic.Total,
		"video":     ic.Video,
		"audio":     ic.Audio,
		"subtitles": ic.Subtitles,
		"others":    ic.Others,
		"open":      ic.Open,
		"closed":    ic.Closed,
	}
}

// Issue is a reported problem with a media item
type Issue struct {
	ID             int       `json:"id"`
	IssueType      int       `json:"issueType"`
	Status         int       `json:"status"`
	ProblemSeason  int       `json:"problemSeason"`
	ProblemEpisode int       `json:"problemEpisode"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Media          Media     `json:"media"`
	CreatedBy      User      `json:"createdBy"`
	Comments       []struct {
		Message string `json:"message"`
	} `json:"comments,omitempty"`
}

var issueTypes = map[int]string{1: "video", 2: "audio", 3: "subtitles", 4: "other"}

// Summary flattens an issue into the attribute map exposed on the issues sensor
func (i *Issue) Summary() map[string]any {
	summary := map[string]any{
		"id":              i.ID,
		"issue_type":      issueTypes[i.IssueType],
		"open":            i.Status == 1,
		"problem_season":  i.ProblemSeason,
		"problem_episode": i.ProblemEpisode,
		"media_type":      string(i.Media.MediaType),
		"tmdb_id":         i.Media.TmdbID,
		"created_by":      i.CreatedBy.GetDisplayName(),
		"created_at":      i.CreatedAt.Format(time.RFC3339),
	}
	if len(i.Comments) > 0 {
		summary["message"] = i.Comments[0].Message
	}
	return summary
}

type issuesResponse struct {
	PageInfo PageInfo `json:"pageInfo"`
	Results  []Issue  `json:"results"`
}
