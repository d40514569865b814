package req

type PageQuery struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

type FeatureAuditUri struct {
	FeatureID uint64 `uri:"featureId" binding:"required"`
}

// FeatureAuditQuery filters the history of one feature. Action may repeat.
type FeatureAuditQuery struct {
	PageQuery
	Action     []string `form:"action"`
	UserType   string   `form:"user_type"`
	Username   string   `form:"username"`
	DataSource string   `form:"data_source"`
}

type EntityAuditQuery struct {
	PageQuery
	EntityType string `form:"entity_type" binding:"required"`
	EntityID   uint64 `form:"entity_id" binding:"required"`
}
