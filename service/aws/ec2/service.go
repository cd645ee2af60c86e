package awsec2

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/elC0mpa/aws-spot/model"
	"github.com/shopspring/decimal"
)

const (
	// DefaultProductDescription restricts price history to the Linux market
	DefaultProductDescription = "Linux/UNIX"

	errCodeSpotRequestNotFound = "InvalidSpotInstanceRequestID.NotFound"
)

func NewService(awsconfig aws.Config, productDescription string) *service {
	return NewServiceWithClient(ec2.NewFromConfig(awsconfig), awsconfig.Region, productDescription)
}

func NewServiceWithClient(client EC2API, region, productDescription string) *service {
	return &service{
		client:             client,
		region:             region,
		productDescription: productDescription,
	}
}

func (s *service) GetSpotPriceHistory(ctx context.Context, start, end time.Time, instanceType, availabilityZone string) ([]model.PriceSample, error) {
	input := &ec2.DescribeSpotPriceHistoryInput{
		StartTime:     aws.Time(start),
		EndTime:       aws.Time(end),
		InstanceTypes: []types.InstanceType{types.InstanceType(instanceType)},
	}
	if availabilityZone != "" {
		input.AvailabilityZone = aws.String(availabilityZone)
	}
	if s.productDescription != "" {
		input.ProductDescriptions = []string{s.productDescription}
	}

	var samples []model.PriceSample

	paginator := ec2.NewDescribeSpotPriceHistoryPaginator(s.client, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not retrieve spot price history for %s in %s: %w", instanceType, availabilityZone, err)
		}

		for _, price := range output.SpotPriceHistory {
			value, err := decimal.NewFromString(aws.ToString(price.SpotPrice))
			if err != nil {
				return nil, fmt.Errorf("malformed spot price %q: %w", aws.ToString(price.SpotPrice), err)
			}

			samples = append(samples, model.PriceSample{
				Price:            value,
				Timestamp:        aws.ToTime(price.Timestamp),
				InstanceType:     string(price.InstanceType),
				AvailabilityZone: aws.ToString(price.AvailabilityZone),
			})
		}
	}

	return samples, nil
}

func (s *service) GetSecurityGroups(ctx context.Context, groupIDs []string) ([]string, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	output, err := s.client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: groupIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("could not describe security groups %v: %w", groupIDs, err)
	}

	names := make([]string, 0, len(output.SecurityGroups))
	for _, group := range output.SecurityGroups {
		names = append(names, aws.ToString(group.GroupName))
	}

	return names, nil
}

func (s *service) RequestSpotInstances(ctx context.Context, launch model.SpotLaunch) ([]model.SpotRequest, error) {
	output, err := s.client.RequestSpotInstances(ctx, s.requestArguments(launch))
	if err != nil {
		return nil, fmt.Errorf("could not request spot instance at %s: %w", launch.Price.String(), err)
	}

	requests := make([]model.SpotRequest, 0, len(output.SpotInstanceRequests))
	for _, request := range output.SpotInstanceRequests {
		requests = append(requests, s.convertSpotRequest(request))
	}

	return requests, nil
}

func (s *service) GetSpotInstanceRequests(ctx context.Context, requestIDs []string) ([]model.SpotRequest, error) {
	input := &ec2.DescribeSpotInstanceRequestsInput{
		SpotInstanceRequestIds: requestIDs,
	}

	var requests []model.SpotRequest
	for {
		output, err := s.client.DescribeSpotInstanceRequests(ctx, input)
		if err != nil {
			if isSpotRequestNotFound(err) {
				// freshly created requests can lag behind in the listing
				return requests, nil
			}
			return nil, fmt.Errorf("could not retrieve spot instance requests %v: %w", requestIDs, err)
		}

		for _, request := range output.SpotInstanceRequests {
			requests = append(requests, s.convertSpotRequest(request))
		}

		if aws.ToString(output.NextToken) == "" {
			break
		}
		input.NextToken = output.NextToken
	}

	return requests, nil
}

func (s *service) CancelSpotInstanceRequests(ctx context.Context, requestIDs []string) ([]string, error) {
	output, err := s.client.CancelSpotInstanceRequests(ctx, &ec2.CancelSpotInstanceRequestsInput{
		SpotInstanceRequestIds: requestIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("could not cancel spot instance requests %v: %w", requestIDs, err)
	}

	cancelled := make([]string, 0, len(output.CancelledSpotInstanceRequests))
	for _, request := range output.CancelledSpotInstanceRequests {
		cancelled = append(cancelled, aws.ToString(request.SpotInstanceRequestId))
	}

	return cancelled, nil
}

func (s *service) GetInstanceByID(ctx context.Context, instanceID string) (*model.Instance, error) {
	output, err := s.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, fmt.Errorf("could not describe instance %s: %w", instanceID, err)
	}

	for _, reservation := range output.Reservations {
		for _, instance := range reservation.Instances {
			if aws.ToString(instance.InstanceId) == instanceID {
				return convertInstance(instance), nil
			}
		}
	}

	return nil, fmt.Errorf("instance %s not found", instanceID)
}

func (s *service) StartInstance(ctx context.Context, instanceID string) error {
	_, err := s.client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("could not start instance %s: %w", instanceID, err)
	}

	return nil
}

func (s *service) StopInstance(ctx context.Context, instanceID string) error {
	_, err := s.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("could not stop instance %s: %w", instanceID, err)
	}

	return nil
}

func (s *service) TerminateInstance(ctx context.Context, instanceID string) error {
	_, err := s.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("could not terminate instance %s: %w", instanceID, err)
	}

	return nil
}

func (s *service) ModifyInstanceAttribute(ctx context.Context, instanceID, attribute, value string) error {
	_, err := s.client.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId: aws.String(instanceID),
		Attribute:  types.InstanceAttributeName(attribute),
		Value:      aws.String(value),
	})
	if err != nil {
		return fmt.Errorf("could not modify %s of instance %s: %w", attribute, instanceID, err)
	}

	return nil
}

func (s *service) requestArguments(launch model.SpotLaunch) *ec2.RequestSpotInstancesInput {
	spec := &types.RequestSpotLaunchSpecification{
		ImageId:      aws.String(launch.ImageID),
		InstanceType: types.InstanceType(launch.InstanceType),
	}
	if launch.KeyName != "" {
		spec.KeyName = aws.String(launch.KeyName)
	}
	if len(launch.SecurityGroupNames) > 0 {
		spec.SecurityGroups = launch.SecurityGroupNames
	}
	if launch.UserData != "" {
		spec.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(launch.UserData)))
	}

	input := &ec2.RequestSpotInstancesInput{
		SpotPrice:           aws.String(launch.Price.String()),
		InstanceCount:       aws.Int32(1),
		Type:                types.SpotInstanceTypeOneTime,
		LaunchSpecification: spec,
	}
	if launch.AvailabilityZone != "" {
		input.AvailabilityZoneGroup = aws.String(launch.AvailabilityZone)
		spec.Placement = &types.SpotPlacement{
			AvailabilityZone: aws.String(launch.AvailabilityZone),
		}
	}
	if launch.ClientToken != "" {
		input.ClientToken = aws.String(launch.ClientToken)
	}

	return input
}

func (s *service) convertSpotRequest(request types.SpotInstanceRequest) model.SpotRequest {
	converted := model.SpotRequest{
		RequestID:        aws.ToString(request.SpotInstanceRequestId),
		State:            string(request.State),
		InstanceID:       aws.ToString(request.InstanceId),
		Region:           s.region,
		AvailabilityZone: aws.ToString(request.LaunchedAvailabilityZone),
	}

	if request.Status != nil {
		converted.StatusCode = model.StatusCode(aws.ToString(request.Status.Code))
		converted.StatusMessage = aws.ToString(request.Status.Message)
	}

	if price, err := decimal.NewFromString(aws.ToString(request.SpotPrice)); err == nil {
		converted.BidPrice = price
	}

	if converted.AvailabilityZone == "" && request.LaunchSpecification != nil && request.LaunchSpecification.Placement != nil {
		converted.AvailabilityZone = aws.ToString(request.LaunchSpecification.Placement.AvailabilityZone)
	}

	return converted
}

func convertInstance(instance types.Instance) *model.Instance {
	converted := &model.Instance{
		ID:                    aws.ToString(instance.InstanceId),
		InstanceType:          string(instance.InstanceType),
		PrivateIPAddress:      aws.ToString(instance.PrivateIpAddress),
		PublicIPAddress:       aws.ToString(instance.PublicIpAddress),
		SpotInstanceRequestID: aws.ToString(instance.SpotInstanceRequestId),
	}

	if instance.State != nil {
		converted.State = string(instance.State.Name)
	}
	if instance.Placement != nil {
		converted.AvailabilityZone = aws.ToString(instance.Placement.AvailabilityZone)
	}

	return converted
}

func isSpotRequestNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == errCodeSpotRequestNotFound
}
