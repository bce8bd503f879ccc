package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/work-permit/internal/core/common/storage"
	permitDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/permit"
	"github.com/frahmantamala/work-permit/internal/permit"
	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "permits"

type locationDocument struct {
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
	Address   string  `bson:"address"`
}

type permitDocument struct {
	ID            string           `bson:"_id"`
	UserID        string           `bson:"userId"`
	WONumber      string           `bson:"woNumber"`
	WPNumber      string           `bson:"wpNumber"`
	Name          string           `bson:"name"`
	Designation   string           `bson:"designation"`
	Plant         string           `bson:"plant"`
	WorkNature    string           `bson:"workNature"`
	EstimatedDays int              `bson:"estimatedDays"`
	Location      locationDocument `bson:"location"`
	Status        string           `bson:"status"`
	AdminComments *string          `bson:"adminComments,omitempty"`
	ApprovedBy    *string          `bson:"approvedBy,omitempty"`
	ApprovedAt    *time.Time       `bson:"approvedAt,omitempty"`
	CreatedAt     time.Time        `bson:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt"`
}

func toDocument(p *permitDatamodel.Permit) permitDocument {
	return permitDocument{
		ID:            p.ID,
		UserID:        p.UserID,
		WONumber:      p.WONumber,
		WPNumber:      p.WPNumber,
		Name:          p.Name,
		Designation:   p.Designation,
		Plant:         p.Plant,
		WorkNature:    p.WorkNature,
		EstimatedDays: p.EstimatedDays,
		Location: locationDocument{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Address:   p.Address,
		},
		Status:        p.Status,
		AdminComments: p.AdminComments,
		ApprovedBy:    p.ApprovedBy,
		ApprovedAt:    p.ApprovedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (d permitDocument) toDataModel() *permitDatamodel.Permit {
	return &permitDatamodel.Permit{
		ID:            d.ID,
		UserID:        d.UserID,
		WONumber:      d.WONumber,
		WPNumber:      d.WPNumber,
		Name:          d.Name,
		Designation:   d.Designation,
		Plant:         d.Plant,
		WorkNature:    d.WorkNature,
		EstimatedDays: d.EstimatedDays,
		Latitude:      d.Location.Latitude,
		Longitude:     d.Location.Longitude,
		Address:       d.Location.Address,
		Status:        d.Status,
		AdminComments: d.AdminComments,
		ApprovedBy:    d.ApprovedBy,
		ApprovedAt:    d.ApprovedAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type PermitRepository struct {
	coll *mgo.Collection
}

var _ permit.RepositoryAPI = (*PermitRepository)(nil)

func NewPermitRepository(db *mgo.Database) *PermitRepository {
	return &PermitRepository{coll: db.Collection(collectionName)}
}

func (r *PermitRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mgo.IndexModel{
		{Keys: bson.D{{Key: "wpNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *PermitRepository) Create(ctx context.Context, p *permitDatamodel.Permit) error {
	_, err := r.coll.InsertOne(ctx, toDocument(p))
	if storage.IsUniqueViolation(err) {
		return permitDatamodel.ErrDuplicateWPNumber
	}
	return err
}

func (r *PermitRepository) GetByID(ctx context.Context, id string) (*permitDatamodel.Permit, error) {
	var doc permitDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mgo.ErrNoDocuments) {
			return nil, permitDatamodel.ErrNotFound
		}
		return nil, err
	}
	return doc.toDataModel(), nil
}

func (r *PermitRepository) ExistsByWPNumber(ctx context.Context, wpNumber string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"wpNumber": wpNumber}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func filterDocument(filter permitDatamodel.Filter) bson.M {
	doc := bson.M{}
	if filter.UserID != "" {
		doc["userId"] = filter.UserID
	}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	return doc
}

func (r *PermitRepository) List(ctx context.Context, filter permitDatamodel.Filter, limit, offset int) ([]*permitDatamodel.Permit, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cur, err := r.coll.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []permitDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	permits := make([]*permitDatamodel.Permit, len(docs))
	for i, d := range docs {
		permits[i] = d.toDataModel()
	}
	return permits, nil
}

func (r *PermitRepository) Count(ctx context.Context, filter permitDatamodel.Filter) (int64, error) {
	return r.coll.CountDocuments(ctx, filterDocument(filter))
}

func (r *PermitRepository) Update(ctx context.Context, p *permitDatamodel.Permit, expectedStatus string) error {
	set := bson.M{
		"status":    p.Status,
		"updatedAt": p.UpdatedAt,
	}
	unset := bson.M{}
	optional := map[string]interface{}{
		"adminComments": p.AdminComments,
		"approvedBy":    p.ApprovedBy,
		"approvedAt":    p.ApprovedAt,
	}
	for field, v := range optional {
		switch val := v.(type) {
		case *string:
			if val == nil {
				unset[field] = ""
			} else {
				set[field] = *val
			}
		case *time.Time:
			if val == nil {
				unset[field] = ""
			} else {
				set[field] = *val
			}
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": p.ID, "status": expectedStatus}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return permitDatamodel.ErrStaleStatus
}

func (r *PermitRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return permitDatamodel.ErrNotFound
	}
	return nil
}
