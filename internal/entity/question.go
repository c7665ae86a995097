package entity

type QuestionType string

const (
	QuestionNormal    QuestionType = "Normal"
	QuestionPigInPoke QuestionType = "PigInPoke"
	QuestionAuction   QuestionType = "Auction"
)

type MediaType string

const (
	MediaText   MediaType = "Text"
	MediaVoice  MediaType = "Voice"
	MediaVideo  MediaType = "Video"
	MediaImage  MediaType = "Image"
	MediaMarker MediaType = "Marker"
)

type Media struct {
	MediaType MediaType `json:"mediaType" yaml:"type"`
	Content   string    `json:"content" yaml:"content"`
}

type Question struct {
	Index     int          `json:"index" yaml:"-"`
	TopicName string       `json:"topicName" yaml:"-"`
	Price     int          `json:"price" yaml:"price"`
	Used      bool         `json:"used" yaml:"-"`
	Type      QuestionType `json:"type" yaml:"type"`
	Media     []Media      `json:"media" yaml:"scenario"`
	Answer    []Media      `json:"answer,omitempty" yaml:"answer"`
}

type Topic struct {
	Name      string     `json:"topicName" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}

type Round struct {
	Name   string  `json:"roundName" yaml:"name"`
	Type   string  `json:"roundType" yaml:"type"`
	Topics []Topic `json:"roundTopics" yaml:"topics"`
}

type Pack struct {
	Name   string  `json:"packName" yaml:"name"`
	Author string  `json:"packAuthor" yaml:"author"`
	Rounds []Round `json:"-" yaml:"rounds"`
}

// PackInfo is the summary published to the UI when a pack is loaded.
type PackInfo struct {
	Name      string   `json:"packName"`
	Author    string   `json:"packAuthor"`
	Rounds    int      `json:"packRounds"`
	Topics    int      `json:"packTopics"`
	Questions int      `json:"packQuestions"`
	TopicList []string `json:"packTopicList"`
}

func (that *Question) Clone() Question {
	question := *that
	question.Media = append([]Media(nil), that.Media...)
	question.Answer = append([]Media(nil), that.Answer...)

	return question
}

// Clone returns a deep copy so callers may hold it while the original keeps changing.
func (that *Round) Clone() Round {
	round := Round{Name: that.Name, Type: that.Type, Topics: make([]Topic, len(that.Topics))}
	for i, topic := range that.Topics {
		questions := make([]Question, len(topic.Questions))
		for j := range topic.Questions {
			questions[j] = topic.Questions[j].Clone()
		}
		round.Topics[i] = Topic{Name: topic.Name, Questions: questions}
	}

	return round
}

func (that *Round) QuestionCount() int {
	count := 0
	for _, topic := range that.Topics {
		count += len(topic.Questions)
	}

	return count
}

func (that *Pack) Info() PackInfo {
	info := PackInfo{
		Name:      that.Name,
		Author:    that.Author,
		Rounds:    len(that.Rounds),
		TopicList: []string{},
	}

	for _, round := range that.Rounds {
		info.Topics += len(round.Topics)
		info.Questions += round.QuestionCount()
		for _, topic := range round.Topics {
			info.TopicList = append(info.TopicList, topic.Name)
		}
	}

	return info
}
