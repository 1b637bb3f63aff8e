package dto

type NamespaceStatsResponse struct {
	Namespace string `json:"namespace"`
	Backend   string `json:"backend"`
	Records   int    `json:"records"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Cloud     string `json:"cloud,omitempty"`
	Region    string `json:"region,omitempty"`
}
