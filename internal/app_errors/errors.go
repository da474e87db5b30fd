package app_errors

import "errors"

// Not found.
var ErrUserNotFound = errors.New("user not found")
var ErrCourseNotFound = errors.New("course not found")
var ErrEnrollmentNotFound = errors.New("enrollment not found")
var ErrNotEnrolled = errors.New("user is not enrolled in this course")
var ErrReviewNotFound = errors.New("review not found")
var ErrCertificateNotFound = errors.New("certificate not found")
var ErrNotificationNotFound = errors.New("notification not found")
var ErrTokenNotFound = errors.New("token not found")
var ErrNoPendingInstallment = errors.New("no pending installment")

// Unauthorized / forbidden.
var ErrIncorrectPassword = errors.New("incorrect password")
var ErrTokenExpired = errors.New("token expired")
var ErrInvalidToken = errors.New("invalid token")
var ErrNotCourseAuthor = errors.New("you are not course author")
var ErrNotEnrollmentOwner = errors.New("payment does not belong to this user")
var ErrForbidden = errors.New("insufficient permissions")

// Invalid input.
var ErrInvalidPaymentType = errors.New("payment type must be full or installment")
var ErrInvalidInstallmentPlan = errors.New("installment plan must be 6, 12 or 24")
var ErrVideoNotInCourse = errors.New("video does not belong to this course")
var ErrEmptyVideoList = errors.New("at least one video id is required")
var ErrInvalidRating = errors.New("rating must be between 1 and 5")
var ErrEmptyComment = errors.New("review comment is required")
var ErrCourseNotPublished = errors.New("course not published")
var ErrCourseNotCompleted = errors.New("course not completed")
var ErrPaymentNotSucceeded = errors.New("payment not successful")
var ErrInvalidSignature = errors.New("invalid webhook signature")
var ErrNotVideo = errors.New("not a video")
var ErrNotImage = errors.New("not image")
var ErrFileSize = errors.New("file size error")
var ErrInvalidStatus = errors.New("invalid status transition")
var ErrWeakPassword = errors.New("password must be 8 to 72 characters")
var ErrInvalidRole = errors.New("unknown role")

// Conflict.
var ErrUserExists = errors.New("user already exists")
var ErrAlreadyEnrolled = errors.New("already enrolled in this course")
var ErrCertificateRevoked = errors.New("certificate revoked")
var ErrPaymentInProgress = errors.New("another payment for this enrollment is in progress")

// External services.
var ErrPaymentProvider = errors.New("payment provider failure")
var ErrMediaHost = errors.New("media host failure")
