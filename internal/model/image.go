// Package model 定义了与数据库表对应的 Go 结构体。
package model

// 图片状态。create_time 在每次状态变更时被改写，
// 因此它实际表示"最后一次状态变化的时间"而非严格的创建时间。
const (
	// StateTrashed 回收站中，可被永久清除
	StateTrashed = 0
	// StateActive 正常展示在图库中
	StateActive = 1
)

// ImageRecord 对应于数据库中的 'imsheet' 表，每行描述一个已上传的图片。
// ImagePath 是对象在存储端的实际 key，全表唯一。
type ImageRecord struct {
	ID            int64  `json:"id"`
	ImageName     string `json:"image_name"`
	ImageLocation string `json:"image_location"`
	ImagePath     string `json:"image_path"`
	ImageSize     int64  `json:"image_size"`
	ImageState    int    `json:"image_state"`
	CreateTime    int64  `json:"create_time"`
}

// CatalogStats 对应于 'imsheet_statistical' 表中唯一的统计行（id=1）。
// Size/Quantity 是增量维护的聚合值；LastHash 记录本进程最后一次
// 推送或拉取目录 blob 时存储端返回的指纹，是同步协议的基准。
type CatalogStats struct {
	ID       int64  `json:"id"`
	Size     int64  `json:"size"`
	Quantity int64  `json:"quantity"`
	LastHash string `json:"last_hash"`
}

// TimeRange 限定 create_time 的查询区间（毫秒时间戳，闭区间）。
type TimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}
