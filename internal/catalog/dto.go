package catalog

import "time"

type CreateItemRequest struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	Publisher   string `json:"publisher"`
	TotalCopies int    `json:"total_copies" binding:"required,min=1"`
}

type AdjustTotalRequest struct {
	TotalCopies int `json:"total_copies" binding:"required,min=1"`
}

type ItemResponse struct {
	ItemID             string    `json:"item_id"`
	Title              string    `json:"title"`
	Author             string    `json:"author,omitempty"`
	Category           string    `json:"category,omitempty"`
	Publisher          string    `json:"publisher,omitempty"`
	TotalCopies        int       `json:"total_copies"`
	AvailableCopies    int       `json:"available_copies"`
	AvailabilityStatus string    `json:"availability_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toItemResponse(it *Item) ItemResponse {
	return ItemResponse{
		ItemID:             it.ItemID,
		Title:              it.Title,
		Author:             it.Author,
		Category:           it.Category,
		Publisher:          it.Publisher,
		TotalCopies:        it.TotalCopies,
		AvailableCopies:    it.AvailableCopies,
		AvailabilityStatus: it.AvailabilityStatus(),
		CreatedAt:          it.CreatedAt,
		UpdatedAt:          it.UpdatedAt,
	}
}
