package overseerr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestStatus(t *testing.T) {
	tests := []struct {
		status   RequestStatus
		expected string
	}{
		{RequestStatusPending, "PENDING"},
		{RequestStatusApproved, "APPROVED"},
		{RequestStatusDeclined, "DECLINED"},
		{RequestStatusFailed, "FAILED"},
		{RequestStatusCompleted, "COMPLETED"},
		{RequestStatusUnknown, "UNKNOWN"},
		{RequestStatus(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestParseRequestAction(t *testing.T) {
	tests := []struct {
		in      string
		want    RequestAction
		wantErr bool
	}{
		{"approve", ActionApprove, false},
		{"Approved", ActionApprove, false},
		{" decline ", ActionDecline, false},
		{"declined", ActionDecline, false},
		{"pending", ActionPending, false},
		{"available", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRequestAction(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMediaType(t *testing.T) {
	mt, err := ParseMediaType("TV")
	require.NoError(t, err)
	assert.Equal(t, MediaTypeTV, mt)

	_, err = ParseMediaType("music")
	assert.Error(t, err)
}

func TestUser(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{
			name:     "display name available",
			user:     User{DisplayName: "John Doe", Username: "johndoe", Email: "john@example.com"},
			expected: "John Doe",
		},
		{
			name:     "only username available",
			user:     User{Username: "johndoe", PlexUsername: "john_plex"},
			expected: "johndoe",
		},
		{
			name:     "only plex username available",
			user:     User{PlexUsername: "john_plex", Email: "john@example.com"},
			expected: "john_plex",
		},
		{
			name:     "only email available",
			user:     User{Email: "john@example.com"},
			expected: "john@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.GetDisplayName())
		})
	}
}

func TestTally(t *testing.T) {
	requests := []MediaRequest{
		{Type: MediaTypeMovie, Status: RequestStatusPending},
		{Type: MediaTypeMovie, Status: RequestStatusApproved, Is4k: true, Media: Media{Status4k: MediaStatusProcessing}},
		{Type: MediaTypeTV, Status: RequestStatusApproved, Media: Media{Status: MediaStatusAvailable}},
		{Type: MediaTypeTV, Status: RequestStatusDeclined},
	}

	assert.Equal(t, RequestCounts{
		Total:      4,
		Movies:     2,
		TV:         2,
		Standard:   3,
		FourK:      1,
		Pending:    1,
		Approved:   2,
		Declined:   1,
		Processing: 1,
		Available:  1,
	}, Tally(requests))

	assert.Equal(t, RequestCounts{}, Tally(nil))
}

func TestMediaRequestSummary(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	req := MediaRequest{
		ID:          12,
		Type:        MediaTypeTV,
		Status:      RequestStatusApproved,
		CreatedAt:   created,
		RequestedBy: User{Username: "johndoe"},
		ModifiedBy:  &User{DisplayName: "Admin"},
		Media:       Media{TmdbID: 42, Status: MediaStatusProcessing},
		Seasons:     []Season{{SeasonNumber: 1}, {SeasonNumber: 2}},
	}

	summary := req.Summary()
	assert.Equal(t, 12, summary["id"])
	assert.Equal(t, "tv", summary["type"])
	assert.Equal(t, "APPROVED", summary["status"])
	assert.Equal(t, "PROCESSING", summary["media_status"])
	assert.Equal(t, 42, summary["tmdb_id"])
	assert.Equal(t, "johndoe", summary["requested_by"])
	assert.Equal(t, "Admin", summary["approved_by"])
	assert.Equal(t, "2024-05-01T12:00:00Z", summary["requested_at"])
	assert.Equal(t, []int{1, 2}, summary["seasons"])

	req.Status = RequestStatusPending
	_, ok := req.Summary()["approved_by"]
	assert.False(t, ok)
}

func TestIssueSummary(t *testing.T) {
	issue := Issue{
		ID:        3,
		IssueType: 2,
		Status:    1,
		Media:     Media{TmdbID: 7, MediaType: MediaTypeMovie},
		CreatedBy: User{DisplayName: "Jane"},
		Comments: []struct {
			Message string `json:"message"`
		}{{Message: "no sound"}},
	}

	summary := issue.Summary()
	assert.Equal(t, "audio", summary["issue_type"])
	assert.Equal(t, true, summary["open"])
	assert.Equal(t, "movie", summary["media_type"])
	assert.Equal(t, "Jane", summary["created_by"])
	assert.Equal(t, "no sound", summary["message"])
}

func TestRequestsResponse(t *testing.T) {
	resp := RequestsResponse{PageInfo: PageInfo{Page: 2, Pages: 5}}
	assert.True(t, resp.HasMorePages())

	resp.PageInfo.Page = 5
	assert.False(t, resp.HasMorePages())
}
