package prompt

// Built-in templates. English is the default locale; localized variants only
// need to override the prompts that differ.
var builtinTemplates = map[string]map[string]string{
	"en": {
		CharacterProfiles: `Analyze the following episode of a novel and extract the characters that appear on screen.

Episode: {{episode_title}}

Novel text:
{{novel_text}}

For each character give a short role (protagonist, antagonist, supporting), a visual appearance description usable for casting, and a one-line personality.

Output as JSON: {"characters": [{"name": "...", "role": "...", "appearance": "...", "personality": "..."}]}`,

		LocationSelection: `Select the distinct filming locations needed to shoot the following episode.

Episode: {{episode_title}}

Novel text:
{{novel_text}}

Keep the list minimal: merge scenes that can share a set. Describe each location visually and give its atmosphere in a few words.

Output as JSON: {"locations": [{"name": "...", "description": "...", "atmosphere": "..."}]}`,

		ClipSegmentation: `Split the following episode into short video clips of 15-60 seconds each, in story order.

Episode: {{episode_title}}

Novel text:
{{novel_text}}

Each clip needs a title, a one-paragraph summary of what happens on screen, and the excerpt of the source text it covers.

Output as JSON: {"clips": [{"title": "...", "summary": "...", "sourceExcerpt": "..."}]}`,

		ScreenplayConversion: `Convert one clip of the episode "{{episode_title}}" into a shot-ready screenplay.

Clip: {{clip_title}}
Summary: {{clip_summary}}

Source excerpt:
{{source_excerpt}}

Characters:
{{characters}}

Locations:
{{locations}}

Write a scene heading, the on-screen action, and the dialogue. Only use characters from the list above.

Output as JSON: {"sceneHeading": "...", "action": "...", "dialogue": [{"character": "...", "line": "...", "emotion": "..."}]}`,

		StoryboardPlan: `Plan storyboards for the episode "{{episode_title}}" from the following screenplays.

Screenplays:
{{screenplays}}

Create one storyboard per clip. Break each storyboard into 3-8 panels; give each panel a one-line beat describing what the frame shows. clipIndex must match the [clip N] markers above.

Output as JSON: {"storyboards": [{"clipIndex": 0, "title": "...", "summary": "...", "panels": [{"beat": "..."}]}]}`,

		Cinematography: `Design the cinematography for one storyboard of the episode "{{episode_title}}".

Storyboard: {{unit_title}}
Summary: {{unit_summary}}

Panels:
{{panel_beats}}

Give a one-paragraph overview of the visual language, then exactly one shot per panel, in order, with shot size (e.g. wide, medium, close-up), camera movement, and duration in seconds.

Output as JSON: {"overview": "...", "shots": [{"shot": "...", "cameraMove": "...", "durationSec": 3.5}]}`,

		ActingDirection: `Write acting direction for one storyboard of the episode "{{episode_title}}".

Storyboard: {{unit_title}}
Summary: {{unit_summary}}

Panels:
{{panel_beats}}

Describe the emotional beats, blocking, and performance notes for the actors across these panels.

Output as JSON: {"actingNotes": "..."}`,

		PanelDetail: `Expand one storyboard panel into a full frame description for image generation.

Storyboard: {{unit_title}}
Beat: {{panel_beat}}
Shot: {{shot}}
Camera: {{camera_move}}

Describe the frame in one detailed paragraph: subjects, composition, lighting, and mood.

Output as JSON: {"description": "..."}`,

		VoiceAnalysis: `Extract the voice lines for the episode "{{episode_title}}" from its storyboards and match each line to the panel it plays over.

Storyboards:
{{storyboards}}

List every spoken line in playback order. storyboardIndex and panelIndex must reference the [storyboard N] and panel numbers above.

Output as JSON: {"voiceLines": [{"character": "...", "line": "...", "emotion": "...", "storyboardIndex": 0, "panelIndex": 0}]}`,
	},

	"tr": {
		CharacterProfiles: `Aşağıdaki roman bölümünü analiz et ve ekranda görünen karakterleri çıkar.

Bölüm: {{episode_title}}

Roman metni:
{{novel_text}}

Her karakter için kısa bir rol (başkahraman, karşıt, yardımcı), oyuncu seçiminde kullanılabilecek bir görünüm tarifi ve tek cümlelik bir kişilik ver.

Output as JSON: {"characters": [{"name": "...", "role": "...", "appearance": "...", "personality": "..."}]}`,
	},
}
