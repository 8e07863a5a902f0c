package service

import (
	"context"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/repository"
)

// ContactService 收货联系人
type ContactService struct {
	contactRepo repository.ContactRepository
}

func NewContactService(contactRepo repository.ContactRepository) *ContactService {
	return &ContactService{contactRepo: contactRepo}
}

func (s *ContactService) List(ctx context.Context, userID int64) ([]dto.ContactInfo, error) {
	cards, err := s.contactRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := make([]dto.ContactInfo, 0, len(cards))
	for i := range cards {
		list = append(list, toContactInfo(&cards[i]))
	}
	return list, nil
}

func (s *ContactService) Create(ctx context.Context, userID int64, req *dto.ContactRequest) (*dto.ContactInfo, error) {
	card := &model.ContactCard{
		UserID:    userID,
		City:      req.City,
		Street:    req.Street,
		House:     req.House,
		Apartment: req.Apartment,
		Country:   req.Country,
		Postcode:  req.Postcode,
		Phone:     req.Phone,
	}
	if err := s.contactRepo.Create(ctx, card); err != nil {
		return nil, apperr.FromDB(err, "保存联系人失败")
	}
	info := toContactInfo(card)
	return &info, nil
}

// Delete 只能删除自己的联系人
func (s *ContactService) Delete(ctx context.Context, userID, id int64) error {
	rows, err := s.contactRepo.DeleteOwned(ctx, userID, id)
	if err != nil {
		return apperr.FromDB(err, "联系人已被订单使用，无法删除")
	}
	if rows == 0 {
		return apperr.NotFound("联系人不存在")
	}
	return nil
}

func toContactInfo(c *model.ContactCard) dto.ContactInfo {
	return dto.ContactInfo{
		ID:        c.ID,
		City:      c.City,
		Street:    c.Street,
		House:     c.House,
		Apartment: c.Apartment,
		Country:   c.Country,
		Postcode:  c.Postcode,
		Phone:     c.Phone,
	}
}
