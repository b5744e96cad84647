package models

// KPIs are the headline counters of the dashboard.
type KPIs struct {
	TotalListings    int64  `json:"total_listings"`
	ActiveListings   int64  `json:"active_listings"`
	FeaturedListings int64  `json:"featured_listings"`
	TotalEnquiries   int64  `json:"total_enquiries"`
	UnreadEnquiries  int64  `json:"unread_enquiries"`
	ActiveAgents     *int64 `json:"active_agents"` // nil for agents
}

// MonthBucket is one calendar month of enquiry volume.
type MonthBucket struct {
	Month string `json:"month"` // 2006-01
	Label string `json:"label"` // Jan 06
	Count int64  `json:"count"`
}

type Dashboard struct {
	KPIs             KPIs             `json:"kpis"`
	RecentEnquiries  []Enquiry        `json:"recent_enquiries"`
	ListingsByType   map[string]int64 `json:"listings_by_type"`
	MonthlyEnquiries map[string]int64 `json:"monthly_enquiries"`
	MonthlySeries    []MonthBucket    `json:"monthly_series"`
}

// TopListing is a row of the most-viewed listings table.
type TopListing struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	City         string        `json:"city"`
	ViewCount    int64         `json:"view_count"`
	EnquiryCount int64         `json:"enquiry_count"`
	Status       ListingStatus `json:"status"`
}
