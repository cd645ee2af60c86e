package model

// AccountInfo represents cloud account identity
type AccountInfo struct {
	Provider    string
	AccountID   string
	AccountName string
}

// Instance represents a compute instance backing a fulfilled spot request
type Instance struct {
	ID                    string
	InstanceType          string
	State                 string
	AvailabilityZone      string
	PrivateIPAddress      string
	PublicIPAddress       string
	SpotInstanceRequestID string
}
