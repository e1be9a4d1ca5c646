package api

import (
	"github.com/lysyi3m/market-comb/app/source"
	"github.com/lysyi3m/market-comb/app/tasks"
)

type Handler struct {
	store     tasks.Store
	registry  *source.Registry
	scheduler tasks.TaskSchedulerInterface
	community string
}

type listingResponse struct {
	ID           string `json:"id"`
	Author       string `json:"author"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	URL          string `json:"url"`
	Created      string `json:"created"`
	Unstructured bool   `json:"unstructured"`
	Approved     bool   `json:"approved"`
	Promoted     bool   `json:"promoted"`
}

type userResponse struct {
	Name        string `json:"name"`
	PosFeedback int    `json:"posFeedback"`
	NegFeedback int    `json:"negFeedback"`
}

type promoteRequest struct {
	Promoted *bool `json:"promoted" binding:"required"`
}
