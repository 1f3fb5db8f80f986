package dto

// PreferenceRequest is the PUT body for replacing a subscriber's preference.
type PreferenceRequest struct {
	Language         string   `json:"language" binding:"required"`
	LocationMode     string   `json:"location_mode" binding:"required"`
	PreferredCountry string   `json:"preferred_country"`
	Skills           []string `json:"skills"`
	Cadence          int      `json:"cadence"`
	Slots            []string `json:"slots"`
}

// PreferenceResponse mirrors the stored preference.
type PreferenceResponse struct {
	SubscriberID     string   `json:"subscriber_id"`
	Language         string   `json:"language"`
	LocationMode     string   `json:"location_mode"`
	PreferredCountry string   `json:"preferred_country,omitempty"`
	Skills           []string `json:"skills"`
	Cadence          int      `json:"cadence"`
	Slots            []string `json:"slots"`
}

// DispatchResponse summarizes an on-demand notification pass.
type DispatchResponse struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// StatsResponse is the pipeline-wide statistics payload.
type StatsResponse struct {
	ActiveSubscribers  int            `json:"active_subscribers"`
	ActiveJobs         int            `json:"active_jobs"`
	TotalJobs          int            `json:"total_jobs"`
	TotalNotifications int            `json:"total_notifications"`
	ClickedCount       int            `json:"clicked_count"`
	ClickRate          float64        `json:"click_rate"`
	JobsPerSource      map[string]int `json:"jobs_per_source"`
}
