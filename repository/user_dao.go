package repository

import (
	"time"

	"github.com/cydxin/match-sdk/models"
	"gorm.io/gorm"
)

// UserDAO 封装 User 相关的数据库操作
type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{db: db}
}

func (dao *UserDAO) WithDB(db *gorm.DB) *UserDAO {
	if db == nil {
		return dao
	}
	return &UserDAO{db: db}
}

func (dao *UserDAO) Create(user *models.User) error {
	return dao.db.Create(user).Error
}

func (dao *UserDAO) FindByID(id uint64) (*models.User, error) {
	var u models.User
	if err := dao.db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (dao *UserDAO) FindByUID(uid string) (*models.User, error) {
	var u models.User
	if err := dao.db.Where("uid = ?", uid).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (dao *UserDAO) FindByUsername(username string) (*models.User, error) {
	var u models.User
	if err := dao.db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActiveIDsByRole 某角色全部正常用户的 ID（广播分发目标集合）
func (dao *UserDAO) ListActiveIDsByRole(role string) ([]uint64, error) {
	var ids []uint64
	err := dao.db.Model(&models.User{}).
		Where("role = ? AND status = ?", role, models.UserStatusActive).
		Pluck("id", &ids).Error
	return ids, err
}

// ListByIDs 批量查用户（列表页展示昵称/头像）
func (dao *UserDAO) ListByIDs(ids []uint64) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := dao.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (dao *UserDAO) UpdateLastLogin(id uint64, at time.Time) error {
	return dao.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_login_at": &at, "last_active_at": &at}).Error
}
