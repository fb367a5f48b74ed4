package enum

type EntityType string

const (
	BATCH        EntityType = "BATCH"
	EMAIL_RECORD EntityType = "EMAIL_RECORD"
	ACCESS_USER  EntityType = "ACCESS_USER"
)

func (entityType EntityType) String() string {
	return string(entityType)
}

func GetEntityType(s string) EntityType {
	return EntityType(s)
}
