package models

import (
	"strings"
	"time"
)

// MaxCommentsPerPost bounds comment harvesting per post
const MaxCommentsPerPost = 5

// TopicOutlier marks a document the clustering model could not assign to any topic
const TopicOutlier = -1

// ForumPost represents one retrieved forum post with its harvested top comments
type ForumPost struct {
	ID          string
	Title       string
	Selftext    string
	Created     time.Time
	UpvoteRatio float64
	Ups         int
	Downs       int
	Score       int
	Comments    []string
}

// CommentText joins harvested comments into a single classifier input string
func (p ForumPost) CommentText() string {
	return strings.Join(p.Comments, " ")
}

// TopicAssignment augments a post with its cluster label
type TopicAssignment struct {
	ForumPost
	Topic int
}

// SentimentLabel is a 3-class sentiment outcome
type SentimentLabel string

const (
	SentimentNegative SentimentLabel = "Negative"
	SentimentNeutral  SentimentLabel = "Neutral"
	SentimentPositive SentimentLabel = "Positive"
)

// Signed maps a label to its signed integer form (Positive=1, Neutral=0, Negative=-1)
func (l SentimentLabel) Signed() int {
	switch l {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// SentimentAssignment augments a topic-labeled post with classifier outputs.
// Probabilities are softmax outputs and sum to ~1; Sentiment is the argmax class.
type SentimentAssignment struct {
	TopicAssignment
	Sentiment SentimentLabel
	PNeg      float64
	PNeut     float64
	PPos      float64
}

// SentimentRecord is a finalized sentiment row with the creation timestamp
// split into date and time display columns
type SentimentRecord struct {
	ID          string
	Title       string
	Created     time.Time
	Date        string
	Time        string
	UpvoteRatio float64
	Ups         int
	Downs       int
	Score       int
	Comments    string
	Topic       int
	Sentiment   SentimentLabel
	PNeg        float64
	PNeut       float64
	PPos        float64
}
