package repository

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// idFilter matches a document by _id. Identifiers are opaque strings at the
// domain boundary but many collections store ObjectIDs, so a hex-parsable id
// matches either representation.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

// refFilter matches a reference field that may hold either an ObjectID or a
// plain string for the same logical id.
func refFilter(field, id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{field: bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{field: id}
}

// stringID renders a raw _id value back to the opaque string form.
func stringID(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}
