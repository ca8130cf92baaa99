package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/gymdesk/gymdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListMemberFilter struct {
	Name          string
	Email         string
	Status        MemberStatus
	PaymentStatus PaymentStatus
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Member, error)
	List(ctx context.Context, db *gorm.DB, filter ListMemberFilter, page pagination.Pagination) ([]*Member, error)
	Update(ctx context.Context, db *gorm.DB, member *Member) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
