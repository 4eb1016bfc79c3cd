/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package augment owns the local tables that annotate upstream software titles.
package augment

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kentakayama/inventory-gateway/internal/domain"
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"github.com/kentakayama/inventory-gateway/internal/domain/service"
	"go.uber.org/zap"
)

// FlagInput is the payload of an open-source flag upsert.
type FlagInput struct {
	SoftwareTitleID int64  `json:"software_title_id" cbor:"software_title_id" validate:"required"`
	Name            string `json:"name" cbor:"name" validate:"required"`
}

// RemarkInput is the payload of a remark upsert. Remark may be empty.
type RemarkInput struct {
	SoftwareTitleID int64  `json:"software_title_id" cbor:"software_title_id" validate:"required"`
	Remark          string `json:"remark" cbor:"remark"`
}

// Service is the only writer of the open-source flag and remark tables.
type Service struct {
	flags    service.OpenSourceFlagRepository
	remarks  service.SoftwareRemarkRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(flags service.OpenSourceFlagRepository, remarks service.SoftwareRemarkRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &Service{
		flags:    flags,
		remarks:  remarks,
		validate: v,
		logger:   logger,
	}
}

func (s *Service) ListFlags(ctx context.Context) ([]model.OpenSourceFlag, error) {
	flags, err := s.flags.List(ctx)
	if err != nil {
		return nil, storageError("list open source flags", err)
	}
	return flags, nil
}

// UpsertFlag creates the flag for in.SoftwareTitleID or replaces its name.
func (s *Service) UpsertFlag(ctx context.Context, in FlagInput) (*model.OpenSourceFlag, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	flag, err := s.flags.Upsert(ctx, in.SoftwareTitleID, in.Name)
	if err != nil {
		s.logger.Error("upsert open source flag failed", zap.Int64("software_title_id", in.SoftwareTitleID), zap.Error(err))
		return nil, storageError("upsert open source flag", err)
	}
	s.logger.Info("open source flag saved", zap.Int64("software_title_id", flag.SoftwareTitleID), zap.String("name", flag.Name))
	return flag, nil
}

// DeleteFlag removes the flag and reports whether it existed. Deleting an absent flag is not an error.
func (s *Service) DeleteFlag(ctx context.Context, softwareTitleID int64) (bool, error) {
	deleted, err := s.flags.DeleteBySoftwareTitleID(ctx, softwareTitleID)
	if err != nil {
		s.logger.Error("delete open source flag failed", zap.Int64("software_title_id", softwareTitleID), zap.Error(err))
		return false, storageError("delete open source flag", err)
	}
	s.logger.Info("open source flag deleted", zap.Int64("software_title_id", softwareTitleID), zap.Bool("existed", deleted))
	return deleted, nil
}

func (s *Service) ListRemarks(ctx context.Context) ([]model.SoftwareRemark, error) {
	remarks, err := s.remarks.List(ctx)
	if err != nil {
		return nil, storageError("list software remarks", err)
	}
	return remarks, nil
}

// UpsertRemark overwrites the remark of in.SoftwareTitleID. An empty remark is stored, not deleted.
func (s *Service) UpsertRemark(ctx context.Context, in RemarkInput) (*model.SoftwareRemark, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	remark, err := s.remarks.Upsert(ctx, in.SoftwareTitleID, in.Remark)
	if err != nil {
		s.logger.Error("upsert software remark failed", zap.Int64("software_title_id", in.SoftwareTitleID), zap.Error(err))
		return nil, storageError("upsert software remark", err)
	}
	s.logger.Info("software remark saved", zap.Int64("software_title_id", remark.SoftwareTitleID), zap.Int("length", len(remark.Remark)))
	return remark, nil
}

// Snapshot reads both tables for joining with upstream titles.
func (s *Service) Snapshot(ctx context.Context) (*model.AugmentationSnapshot, error) {
	flags, err := s.ListFlags(ctx)
	if err != nil {
		return nil, err
	}
	remarks, err := s.ListRemarks(ctx)
	if err != nil {
		return nil, err
	}
	return &model.AugmentationSnapshot{Flags: flags, Remarks: remarks}, nil
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, ", "))
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
