package response

import (
	"github.com/elC0mpa/aws-spot/model"
	"github.com/elC0mpa/aws-spot/service/spot"
	"github.com/shopspring/decimal"
)

// ConvertAccountInfo converts model.AccountInfo to response.AccountInfo
func ConvertAccountInfo(info *model.AccountInfo) *AccountInfo {
	if info == nil {
		return nil
	}
	return &AccountInfo{
		Provider:    info.Provider,
		AccountID:   info.AccountID,
		AccountName: info.AccountName,
	}
}

// ConvertSpotRequest converts model.SpotRequestInfo to response.SpotRequest
func ConvertSpotRequest(node string, info *model.SpotRequestInfo) *SpotRequest {
	if info == nil {
		return nil
	}
	return &SpotRequest{
		Node:             node,
		RequestID:        info.RequestID,
		InstanceID:       info.InstanceID,
		Region:           info.Region,
		AvailabilityZone: info.AvailabilityZone,
		BidPrice:         info.BidPrice.String(),
	}
}

// ConvertInstance converts model.Instance to response.Instance
func ConvertInstance(instance *model.Instance) *Instance {
	if instance == nil {
		return nil
	}
	return &Instance{
		ID:               instance.ID,
		InstanceType:     instance.InstanceType,
		State:            instance.State,
		AvailabilityZone: instance.AvailabilityZone,
		PrivateIPAddress: instance.PrivateIPAddress,
		PublicIPAddress:  instance.PublicIPAddress,
	}
}

// ConvertPriceHistory converts a price history to response format. seed is the bid
// a creation would open with, nil when it could not be derived.
func ConvertPriceHistory(instanceType, availabilityZone string, history *spot.PriceHistory, seed *decimal.Decimal) *PriceHistory {
	resp := &PriceHistory{
		InstanceType:     instanceType,
		AvailabilityZone: availabilityZone,
		Prices:           []PricePoint{},
	}
	if history == nil {
		return resp
	}

	resp.Samples = history.Total()
	if lowest, ok := history.Lowest(); ok {
		resp.Lowest = lowest.String()
	}
	if seed != nil {
		resp.InitialBid = seed.String()
	}
	for _, point := range history.Points() {
		resp.Prices = append(resp.Prices, PricePoint{
			Price: point.Price.String(),
			Count: point.Count,
		})
	}
	return resp
}
