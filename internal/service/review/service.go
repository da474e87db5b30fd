package review

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type courseRepo interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error
}

type reviewRepo interface {
	UpsertReview(ctx context.Context, review *models.Review) error
	ReviewByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	DeleteReview(ctx context.Context, id uuid.UUID) error
	ReviewsByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Review, error)
	RatingsByCourse(ctx context.Context, courseID uuid.UUID) ([]int, error)
}

type enrollmentRepo interface {
	EnrollmentByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
}

type ReviewService struct {
	log         logger.Log
	courses     courseRepo
	reviews     reviewRepo
	enrollments enrollmentRepo
}

func NewReviewService(log logger.Log, c courseRepo, r reviewRepo, e enrollmentRepo) *ReviewService {
	return &ReviewService{
		log:         log.With("service", "review"),
		courses:     c,
		reviews:     r,
		enrollments: e,
	}
}

// AddOrUpdateReview stores the user's single review of a course and refreshes the course rating.
func (s *ReviewService) AddOrUpdateReview(ctx context.Context, userID, courseID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if !models.ValidRating(rating) {
		return nil, app_errors.ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, app_errors.ErrEmptyComment
	}
	if _, err := s.courses.CourseByID(ctx, courseID); err != nil {
		return nil, err
	}

	e, err := s.enrollments.EnrollmentByUserCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, app_errors.ErrEnrollmentNotFound) {
			return nil, app_errors.ErrNotEnrolled
		}
		return nil, err
	}
	if !e.HasAccess() {
		return nil, app_errors.ErrNotEnrolled
	}

	rv := &models.Review{CourseID: courseID, UserID: userID, Rating: rating, Comment: comment}
	if err := s.reviews.UpsertReview(ctx, rv); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}
	if _, err := s.recomputeRating(ctx, courseID); err != nil {
		return nil, err
	}
	return rv, nil
}

// DeleteReview is allowed for the review author, the course instructor and admins.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID uuid.UUID, roles []string) error {
	rv, err := s.reviews.ReviewByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if rv.UserID != userID && !models.HasAnyRole(roles, models.AdminRole) {
		course, err := s.courses.CourseByID(ctx, rv.CourseID)
		if err != nil {
			return err
		}
		if course.InstructorID != userID {
			return app_errors.ErrForbidden
		}
	}

	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		return err
	}
	_, err = s.recomputeRating(ctx, rv.CourseID)
	return err
}

func (s *ReviewService) ListReviews(ctx context.Context, courseID uuid.UUID) ([]models.Review, error) {
	if _, err := s.courses.CourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.reviews.ReviewsByCourse(ctx, courseID)
}

func (s *ReviewService) recomputeRating(ctx context.Context, courseID uuid.UUID) (float64, error) {
	ratings, err := s.reviews.RatingsByCourse(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("load ratings: %w", err)
	}
	avg := models.AverageRating(ratings)
	if err := s.courses.UpdateRating(ctx, courseID, avg); err != nil {
		return 0, fmt.Errorf("update rating: %w", err)
	}
	s.log.Debug("course rating updated", "course_id", courseID, "rating", avg, "reviews", len(ratings))
	return avg, nil
}
