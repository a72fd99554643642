package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/likers-match/domain"
)

const DefaultProfileTable = "Users"

// GetItemAPI is the part of the dynamodb client the profile store needs
type GetItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type profileItem struct {
	UserID             string   `dynamodbav:"userId"`
	Name               string   `dynamodbav:"name"`
	Age                int      `dynamodbav:"age"`
	Gender             string   `dynamodbav:"gender,omitempty"`
	Bio                string   `dynamodbav:"bio,omitempty"`
	Interests          []string `dynamodbav:"interests,omitempty"`
	RelationshipIntent string   `dynamodbav:"relationshipIntent,omitempty"`
	InterestedIn       []string `dynamodbav:"interestedIn,omitempty"`
	Photos             []string `dynamodbav:"photos,omitempty"`
	Latitude           *float64 `dynamodbav:"latitude,omitempty"`
	Longitude          *float64 `dynamodbav:"longitude,omitempty"`
	IsVerified         bool     `dynamodbav:"isVerified"`
	MatchRadiusKm      float64  `dynamodbav:"matchRadiusKm,omitempty"`
	Occupation         *string  `dynamodbav:"occupation,omitempty"`
	HeightCm           *int     `dynamodbav:"heightCm,omitempty"`
	LastActiveAt       string   `dynamodbav:"lastActiveAt,omitempty"` // RFC3339
}

func (it *profileItem) toDomain() domain.CandidateProfile {
	p := domain.CandidateProfile{
		ID:                 it.UserID,
		Name:               it.Name,
		Age:                it.Age,
		Gender:             it.Gender,
		Bio:                it.Bio,
		Interests:          it.Interests,
		RelationshipIntent: it.RelationshipIntent,
		InterestedIn:       it.InterestedIn,
		Photos:             it.Photos,
		IsVerified:         it.IsVerified,
		MatchRadiusKm:      it.MatchRadiusKm,
		Occupation:         it.Occupation,
		HeightCm:           it.HeightCm,
	}
	if it.Latitude != nil && it.Longitude != nil {
		p.Location = &domain.Location{Latitude: *it.Latitude, Longitude: *it.Longitude}
	}
	if it.LastActiveAt != "" {
		if t, err := time.Parse(time.RFC3339, it.LastActiveAt); err == nil {
			p.LastActiveAt = &t
		} else {
			logrus.Debugf("ignoring lastActiveAt %q of user %s: %v", it.LastActiveAt, it.UserID, err)
		}
	}
	return p
}

type profileRepository struct {
	client GetItemAPI
	table  string
}

var _ domain.ProfileStore = (*profileRepository)(nil)

// NewProfileRepository reads profiles from a dynamodb table keyed by userId
func NewProfileRepository(client GetItemAPI, table string) *profileRepository {
	if table == "" {
		table = DefaultProfileTable
	}
	return &profileRepository{client: client, table: table}
}

func (r *profileRepository) Get(ctx context.Context, userID string) (domain.CandidateProfile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("get profile %s from %s: %w", userID, r.table, err)
	}
	if len(out.Item) == 0 {
		return domain.CandidateProfile{}, domain.ErrNotFound
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	return item.toDomain(), nil
}
