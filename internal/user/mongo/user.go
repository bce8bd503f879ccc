package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/work-permit/internal/core/common/storage"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/user"
	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "users"

type locationDocument struct {
	Latitude  float64   `bson:"latitude"`
	Longitude float64   `bson:"longitude"`
	Address   string    `bson:"address"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type userDocument struct {
	ID                       string            `bson:"_id"`
	Name                     string            `bson:"name"`
	Email                    string            `bson:"email"`
	PasswordHash             string            `bson:"password"`
	Role                     string            `bson:"role"`
	IsLocationSharingEnabled bool              `bson:"isLocationSharingEnabled"`
	LastLocation             *locationDocument `bson:"lastLocation,omitempty"`
	CreatedAt                time.Time         `bson:"createdAt"`
	UpdatedAt                time.Time         `bson:"updatedAt"`
}

func toDocument(u *userDatamodel.User) userDocument {
	doc := userDocument{
		ID:                       u.ID,
		Name:                     u.Name,
		Email:                    u.Email,
		PasswordHash:             u.PasswordHash,
		Role:                     u.Role,
		IsLocationSharingEnabled: u.IsLocationSharingEnabled,
		CreatedAt:                u.CreatedAt,
		UpdatedAt:                u.UpdatedAt,
	}
	if loc := u.Location(); loc != nil {
		doc.LastLocation = &locationDocument{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Address:   loc.Address,
			UpdatedAt: loc.UpdatedAt,
		}
	}
	return doc
}

func (d userDocument) toDataModel() *userDatamodel.User {
	u := &userDatamodel.User{
		ID:                       d.ID,
		Name:                     d.Name,
		Email:                    d.Email,
		PasswordHash:             d.PasswordHash,
		Role:                     d.Role,
		IsLocationSharingEnabled: d.IsLocationSharingEnabled,
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
	}
	if d.LastLocation != nil {
		u.SetLocation(userDatamodel.Location{
			Latitude:  d.LastLocation.Latitude,
			Longitude: d.LastLocation.Longitude,
			Address:   d.LastLocation.Address,
			UpdatedAt: d.LastLocation.UpdatedAt,
		})
	}
	return u
}

type UserRepository struct {
	coll *mgo.Collection
}

var _ user.RepositoryAPI = (*UserRepository)(nil)

func NewUserRepository(db *mgo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique email index the duplicate checks rely on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mgo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "lastLocation.updatedAt", Value: -1}}},
	})
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	_, err := r.coll.InsertOne(ctx, toDocument(u))
	if storage.IsUniqueViolation(err) {
		return userDatamodel.ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*userDatamodel.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mgo.ErrNoDocuments) {
			return nil, userDatamodel.ErrNotFound
		}
		return nil, err
	}
	return doc.toDataModel(), nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*userDatamodel.User, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]*userDatamodel.User, len(docs))
	for i, d := range docs {
		users[i] = d.toDataModel()
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*userDatamodel.User, error) {
	if len(ids) == 0 {
		return []*userDatamodel.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.findOne(ctx, bson.M{"email": user.NormalizeEmail(email)})
}

func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	filter := bson.M{"email": user.NormalizeEmail(email)}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepository) updateOne(ctx context.Context, id string, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if storage.IsUniqueViolation(err) {
		return userDatamodel.ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return userDatamodel.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	return r.updateOne(ctx, u.ID, bson.M{
		"name":     u.Name,
		"email":    u.Email,
		"password": u.PasswordHash,
	})
}

func (r *UserRepository) DeleteByRole(ctx context.Context, id, roleName string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "role": roleName})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return userDatamodel.ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context, roleName string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"role": roleName})
}

func (r *UserRepository) ListByRole(ctx context.Context, roleName string, limit, offset int) ([]*userDatamodel.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, bson.M{"role": roleName}, opts)
}

func (r *UserRepository) ListUsers(ctx context.Context, withLocation bool) ([]*userDatamodel.User, error) {
	filter := bson.M{"role": role.User.String()}
	if withLocation {
		filter["lastLocation"] = bson.M{"$exists": true}
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "lastLocation.updatedAt", Value: -1},
		{Key: "createdAt", Value: -1},
	})
	return r.find(ctx, filter, opts)
}

func (r *UserRepository) SetLocationSharing(ctx context.Context, id string, enabled bool) error {
	return r.updateOne(ctx, id, bson.M{"isLocationSharingEnabled": enabled})
}

func (r *UserRepository) UpdateLastLocation(ctx context.Context, id string, loc userDatamodel.Location) error {
	return r.updateOne(ctx, id, bson.M{
		"lastLocation": locationDocument{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Address:   loc.Address,
			UpdatedAt: loc.UpdatedAt,
		},
	})
}
