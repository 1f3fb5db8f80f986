package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdigest/jobdigest/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     domain.RawPosting
		wantErr error
		check   func(t *testing.T, job domain.Job)
	}{
		{
			name: "complete posting",
			raw: domain.RawPosting{
				Source:      "adzuna",
				SourceJobID: "42",
				Title:       "  Backend Engineer ",
				Company:     "Acme",
				Location:    "Cairo, Egypt",
				Description: "Full-time role working with Python and PostgreSQL",
				JobType:     "full_time",
				ApplyURL:    " https://example.com/42 ",
			},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, "Backend Engineer", job.Title)
				assert.Equal(t, "https://example.com/42", job.ApplyURL)
				assert.Equal(t, domain.JobTypeFullTime, job.JobType)
				assert.Equal(t, []string{"Postgresql", "Python"}, job.Skills)
				assert.False(t, job.IsRemote)
				assert.True(t, job.Active)
				assert.Equal(t, domain.LinkStatusUnknown, job.LinkStatus)
			},
		},
		{
			name: "missing title rejected",
			raw: domain.RawPosting{
				Source:      "adzuna",
				SourceJobID: "43",
				ApplyURL:    "https://example.com/43",
			},
			wantErr: domain.ErrMissingField,
		},
		{
			name: "missing apply url rejected",
			raw: domain.RawPosting{
				Source:      "adzuna",
				SourceJobID: "44",
				Title:       "Data Analyst",
			},
			wantErr: domain.ErrMissingField,
		},
		{
			name: "missing source identity rejected",
			raw: domain.RawPosting{
				Title:    "Data Analyst",
				ApplyURL: "https://example.com/45",
			},
			wantErr: domain.ErrMissingField,
		},
		{
			name: "remote inferred from description",
			raw: domain.RawPosting{
				Source:      "adzuna",
				SourceJobID: "46",
				Title:       "Designer",
				ApplyURL:    "https://example.com/46",
				Description: "Work from home, contract basis, Figma required",
			},
			check: func(t *testing.T, job domain.Job) {
				assert.True(t, job.IsRemote)
				assert.Equal(t, "Remote", job.Location)
				assert.Equal(t, domain.JobTypeContract, job.JobType)
				assert.Contains(t, job.Skills, "Figma")
			},
		},
		{
			name: "source skills kept over extraction",
			raw: domain.RawPosting{
				Source:      "remoteok",
				SourceJobID: "47",
				Title:       "Engineer",
				ApplyURL:    "https://example.com/47",
				Description: "python everywhere",
				Skills:      []string{"Golang", "golang", " "},
				IsRemote:    true,
			},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, []string{"Golang"}, job.Skills)
			},
		},
		{
			name: "empty company defaults",
			raw: domain.RawPosting{
				Source:      "remotive",
				SourceJobID: "48",
				Title:       "QA Engineer",
				ApplyURL:    "https://example.com/48",
			},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, "Unknown", job.Company)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := Normalize(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, job)
		})
	}
}

func TestExtractSkills(t *testing.T) {
	skills := ExtractSkills("Looking for React and Node.js experience, plus machine learning")
	assert.Equal(t, []string{"React", "Node.js", "Machine Learning"}, skills)

	assert.Nil(t, ExtractSkills(""))
	assert.Empty(t, ExtractSkills("no recognizable technology here"))
}
