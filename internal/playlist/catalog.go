package playlist

// CatalogEntry describes one of the built-in playlists players can pick
// without pasting a URL.
type CatalogEntry struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	Genre          string `json:"genre"`
	EstimatedSongs int    `json:"estimatedSongs"`
}

var DefaultCatalog = []CatalogEntry{
	{
		ID:             "xenoblade-1",
		Name:           "Xenoblade Chronicles 1",
		Description:    "Xenoblade Chronicles: Definitive Edition OST [Game-Rip]",
		URL:            "https://www.youtube.com/watch?v=d7V3M2DAq1E&list=PLIpqsKgkQEvPAqsHciUotnyjm02WeaQar",
		Genre:          "RPG/Orchestral",
		EstimatedSongs: 99,
	},
	{
		ID:             "xenoblade-2",
		Name:           "Xenoblade Chronicles 2",
		Description:    "Xenoblade Chronicles 2 OST [Game-Rip]",
		URL:            "https://www.youtube.com/watch?v=PFto0LPNkBI&list=PLIpqsKgkQEvMUFbngp-GbW1JwDGXnxcm9",
		Genre:          "RPG/Anime",
		EstimatedSongs: 119,
	},
	{
		ID:             "xenoblade-3",
		Name:           "Xenoblade Chronicles 3",
		Description:    "Xenoblade Chronicles 3 Original Soundtrack",
		URL:            "https://www.youtube.com/watch?v=kPxRL2nta7I&list=PLgBAXaMeVtypgOvL6OcYI3D_oOgA9hcC8",
		Genre:          "RPG/Anime",
		EstimatedSongs: 142,
	},
	{
		ID:             "xenoblade-x",
		Name:           "Xenoblade Chronicles X DE",
		Description:    "Xenoblade Chronicles X Original Soundtrack and some DE tracks",
		URL:            "https://www.youtube.com/watch?v=_DfjXNZ3sMA&list=PLP0B1G-EHwBqoWAxCrpBUy4LNrvlmuYP9",
		Genre:          "RPG/Anime",
		EstimatedSongs: 63,
	},
	{
		ID:             "xenoblade-trilogy",
		Name:           "Xenoblade Chronicles Trilogy",
		Description:    "Xenoblade Chronicles 1, 2 and 3 Original Soundtrack",
		URL:            "https://www.youtube.com/watch?v=d7V3M2DAq1E&list=PLP0B1G-EHwBoT6fL2Wg0H7cMJpku9-w-M",
		Genre:          "RPG/Anime",
		EstimatedSongs: 360,
	},
}

func CatalogByID(id string) (CatalogEntry, bool) {
	for _, e := range DefaultCatalog {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

func CatalogByURL(url string) (CatalogEntry, bool) {
	for _, e := range DefaultCatalog {
		if e.URL == url {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// Label returns a human-readable name for a playlist reference.
func Label(url string) string {
	if e, ok := CatalogByURL(url); ok {
		return e.Name
	}
	if url != "" {
		return "Custom Playlist"
	}
	return "Default Playlist"
}
