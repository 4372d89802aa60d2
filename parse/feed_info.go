package parse

import (
	"strings"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

type FeedInfoCSV struct {
	PublisherName string `csv:"feed_publisher_name"`
	PublisherURL  string `csv:"feed_publisher_url"`
	Lang          string `csv:"feed_lang"`
	StartDate     string `csv:"feed_start_date"`
	EndDate       string `csv:"feed_end_date"`
	Version       string `csv:"feed_version"`
}

func ParseFeedInfo(data []byte) (*feed.Table[model.FeedInfo], error) {
	header, feedInfoCsv, err := readCSV[FeedInfoCSV](data)
	if err != nil {
		return nil, err
	}

	infos := make([]model.FeedInfo, 0, len(feedInfoCsv))
	for _, fi := range feedInfoCsv {
		infos = append(infos, model.FeedInfo{
			PublisherName: fi.PublisherName,
			PublisherURL:  fi.PublisherURL,
			Lang:          strings.TrimSpace(fi.Lang),
			StartDate:     strings.TrimSpace(fi.StartDate),
			EndDate:       strings.TrimSpace(fi.EndDate),
			Version:       fi.Version,
		})
	}

	return feed.NewTable(header, infos), nil
}
