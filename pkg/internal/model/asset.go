// Package model 定义注册表文档中的资产条目与相关领域类型.
package model

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// DefaultAssetIDPrefix 资产 ID 的默认前缀.
const DefaultAssetIDPrefix = "EXC"

// Category 资产分类，固定枚举.
type Category string

const (
	CategoryCharacter   Category = "character"
	CategoryEnvironment Category = "environment"
	CategoryProp        Category = "prop"
	CategoryVehicle     Category = "vehicle"
	CategoryWeapon      Category = "weapon"
	CategoryAnimation   Category = "animation"
	CategoryTexture     Category = "texture"
	CategoryAudio       Category = "audio"
	CategoryOther       Category = "other"
)

// Categories 所有合法分类.
var Categories = []Category{
	CategoryCharacter, CategoryEnvironment, CategoryProp,
	CategoryVehicle, CategoryWeapon, CategoryAnimation,
	CategoryTexture, CategoryAudio, CategoryOther,
}

// IsValidCategory 判断分类是否在固定枚举内.
func IsValidCategory(c string) bool {
	for _, cat := range Categories {
		if string(cat) == c {
			return true
		}
	}

	return false
}

// fileTypes 可识别的二进制格式扩展名集合（不含点）.
var fileTypes = map[string]struct{}{
	"blend": {}, "fbx": {}, "obj": {}, "glb": {}, "gltf": {},
	"stl": {}, "ma": {}, "max": {}, "zip": {}, "unitypackage": {},
}

// IsValidFileType 判断扩展名（不含点，不区分大小写）是否可识别.
func IsValidFileType(ext string) bool {
	_, ok := fileTypes[strings.ToLower(ext)]
	return ok
}

// Asset 注册表文档中的一个资产条目. JSON 字段名与持久化文档保持 camelCase，
// 序列化格式即存储格式，任何字段改名都是对存量数据的破坏性变更.
type Asset struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	AuthorName    string    `json:"authorName"`
	AuthorAvatar  string    `json:"authorAvatar,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	FileType      string    `json:"fileType"`
	Credits       string    `json:"credits,omitempty"`
	ThumbnailURL  string    `json:"thumbnailUrl,omitempty"`
	VideoURL      string    `json:"videoUrl,omitempty"`
	FileURL       string    `json:"fileUrl,omitempty"`
	Likes         []string  `json:"likes"`
	DownloadCount int64     `json:"downloadCount"`
	Reports       int       `json:"reports"`
	Timestamp     time.Time `json:"timestamp"`
	Keywords      []string  `json:"keywords,omitempty"`
}

// Normalize 反序列化后修补缺省值：nil 切片转为空切片，负计数归零.
// 注册表文档可能由旧版本写入或被手工编辑，读取侧必须容忍.
func (a *Asset) Normalize() {
	if a.Likes == nil {
		a.Likes = []string{}
	}

	if a.DownloadCount < 0 {
		a.DownloadCount = 0
	}

	if a.Reports < 0 {
		a.Reports = 0
	}

	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
}

// HasLiked 判断用户是否已点赞.
func (a *Asset) HasLiked(userID string) bool {
	for _, id := range a.Likes {
		if id == userID {
			return true
		}
	}

	return false
}

// ToggleLike 翻转用户的点赞状态，返回翻转后的状态.
// 对同一用户连续调用两次恢复原状（自反）.
func (a *Asset) ToggleLike(userID string) bool {
	for i, id := range a.Likes {
		if id == userID {
			a.Likes = append(a.Likes[:i], a.Likes[i+1:]...)
			return false
		}
	}

	a.Likes = append(a.Likes, userID)

	return true
}

// FolderPath 返回资产工件目录相对仓库根的路径.
func (a *Asset) FolderPath(root string) string {
	return strings.TrimSuffix(root, "/") + "/" + a.ID
}

const idRandLen = 3

// NewAssetID 生成形如 EXC-MB4X2K1-A7Q 的资产 ID：
// 前缀 + base36 毫秒时间戳 + 3 位随机 base36，全部大写.
// 时间戳保证粗粒度有序，随机尾部消除同毫秒并发的碰撞.
func NewAssetID(prefix string) string {
	if prefix == "" {
		prefix = DefaultAssetIDPrefix
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)

	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	tail := make([]byte, idRandLen)
	for i := range tail {
		tail[i] = alphabet[rand.Intn(len(alphabet))]
	}

	return strings.ToUpper(prefix + "-" + ts + "-" + string(tail))
}
