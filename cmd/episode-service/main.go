package main

import (
	"os"

	"github.com/comado-8/EpisodeStocker-sub000/episodeservice"
)

func main() {
	if err := episodeservice.Run(); err != nil {
		os.Exit(1)
	}
}
