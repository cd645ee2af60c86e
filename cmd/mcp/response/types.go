package response

// AccountInfo represents cloud account identity
type AccountInfo struct {
	Provider    string `json:"provider"`
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
}

// SpotRequest represents a fulfilled spot instance request
type SpotRequest struct {
	Node             string `json:"node"`
	RequestID        string `json:"request_id"`
	InstanceID       string `json:"instance_id"`
	Region           string `json:"region"`
	AvailabilityZone string `json:"availability_zone"`
	BidPrice         string `json:"bid_price"`
}

// Instance represents the EC2 instance backing a spot request
type Instance struct {
	ID               string `json:"id"`
	InstanceType     string `json:"instance_type"`
	State            string `json:"state"`
	AvailabilityZone string `json:"availability_zone"`
	PrivateIPAddress string `json:"private_ip_address,omitempty"`
	PublicIPAddress  string `json:"public_ip_address,omitempty"`
}

// PricePoint is a distinct spot price with the number of times it was seen
type PricePoint struct {
	Price string `json:"price"`
	Count int    `json:"count"`
}

// PriceHistory summarizes the last day of spot prices for an instance type
type PriceHistory struct {
	InstanceType     string       `json:"instance_type"`
	AvailabilityZone string       `json:"availability_zone,omitempty"`
	Samples          int          `json:"samples"`
	Lowest           string       `json:"lowest,omitempty"`
	InitialBid       string       `json:"initial_bid,omitempty"`
	Prices           []PricePoint `json:"prices"`
}

// Properties are the runtime properties recorded for a node
type Properties struct {
	Node       string            `json:"node"`
	Properties map[string]string `json:"properties"`
}

// Status is the outcome of a lifecycle operation without a payload
type Status struct {
	Node      string `json:"node"`
	Operation string `json:"operation"`
	Status    string `json:"status"`
}
