package dtos

import "github.com/google/uuid"

type PlaceOrderRequest struct {
	AddressID uuid.UUID `json:"address_id" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
