package agent

import (
	"fmt"
	"strings"
	"time"
)

const (
	tourGuidePromptOneImage = "Tell me about what I'm looking at."
	tourGuidePromptMasked   = "Tell me about the object in the blue area surrounded by the white line."
)

// PromptContext carries what the system prompts interpolate.
type PromptContext struct {
	Location    string
	Lat, Lon    float64
	Preferences []string
	Now         time.Time
}

// BuildSystemPrompt returns the system prompt for intent.
func BuildSystemPrompt(intent Intent, pc PromptContext, masked bool) string {
	var parts []string
	switch intent {
	case IntentTrip:
		parts = append(parts, tripPrompt)
	case IntentRestaurant, IntentPlace:
		parts = append(parts, searchPrompt(intent, pc))
	case IntentTourGuide:
		parts = append(parts, tourGuidePrompt(pc, masked))
	}
	if !pc.Now.IsZero() {
		parts = append(parts, "Current time: "+pc.Now.Format("2006-01-02 15:04 (Monday)"))
	}
	return strings.Join(parts, "\n\n")
}

const tripPrompt = `You are an AI trip planner.
The user wants to travel, given a set of places and waypoints.

Your goal is to create a detailed trip plan including:
1. Route information (directions, distances, estimated travel times).
2. Suggested activities and attractions along the route and at the destination.
3. Potential accommodation options at the destination.
4. Any relevant warnings or advisories for the trip (e.g., road closures, weather).

Use tools to gather the necessary information. Provide the plan.`

func searchPrompt(intent Intent, pc PromptContext) string {
	action, extra := "visit", "recommended activities, expected costs & overall ratings"
	if intent == IntentRestaurant {
		action, extra = "eat", "recommended menu options, expected price to eat there & overall restaurant rating"
	}
	prefs := strings.Join(pc.Preferences, ", ")
	if prefs == "" {
		prefs = "none given"
	}
	return fmt.Sprintf(`You are an AI assistant helping a user find %[1]ss in %[2]s.
The user is looking for a %[1]s to %[3]s.
The user's preferences are: %[4]s.
The user's coordinates are lat %[5]v, lon %[6]v.
Your goal is to build a report of the top 5 %[1]ss that might suit the user's preferences,
including %[7]s.`, intent, pc.Location, action, prefs, pc.Lat, pc.Lon, extra)
}

var tourGuideGuidelines = []string{
	"Only make broad assumptions about the image, and use the tools to confirm and get more details.",
	"You MUST consider the user's current location.",
	"You MUST always make a clarifying search to confirm that the object you believe you are looking at is in the user's current location.",
	"If a tool returns an error, fix the arguments and try again.",
	"For each fact, cite the source of the information.",
	"SearchForNearbyPlacesOfType is the ground truth: a valid place in the image will be among its results.",
}

func tourGuidePrompt(pc PromptContext, masked bool) string {
	task := "You are an expert in using the internet to find information about locations and objects in images. " +
		"The user provides an image of what they are looking at. Tell them accurately what it is."
	guidelines := tourGuideGuidelines
	if masked {
		task = "You are an expert in using the internet to find information about locations and objects in images. " +
			"The user provides two images: the first is what they are looking at, the second is the same view with " +
			"one object masked by a blue translucent area surrounded by a white line. Tell them accurately about the object in the blue area."
		guidelines = append([]string{"Only describe the object in the blue area, not other parts of the image."}, guidelines...)
	}

	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\n<guidelines>\n")
	b.WriteString(strings.Join(guidelines, "\n"))
	b.WriteString("\n</guidelines>\n")
	fmt.Fprintf(&b, "<users_current_location>%s, lat: %v, lon: %v</users_current_location>\n", pc.Location, pc.Lat, pc.Lon)
	b.WriteString("If possible, start with SearchForNearbyPlacesOfType to see what lies within 100 metres. " +
		"Fall back to SearchInternet, and use ReadWebsite on promising pages. " +
		"First describe only what you can directly observe, expressing uncertainty where necessary, then confirm with the tools.")
	return b.String()
}

// tourGuideUserPrompt picks the user text that goes with the images.
func tourGuideUserPrompt(masked bool) string {
	if masked {
		return tourGuidePromptMasked
	}
	return tourGuidePromptOneImage
}
