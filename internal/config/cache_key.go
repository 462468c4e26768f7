package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPaperKey returns the cache key for an exam's candidate-facing paper.
func (r *CacheKeyStruct) ExamPaperKey(examID string) string {
	return fmt.Sprintf("exam:%s:paper", examID)
}

// CandidateDeadlineKey returns the cache key for a candidate's effective
// submission deadline in one exam.
func (r *CacheKeyStruct) CandidateDeadlineKey(examID, accountID string) string {
	return fmt.Sprintf("account:%s:exam:%s:deadline", accountID, examID)
}

var CacheKey = NewCacheKeyStruct()
