package dashboard

// Link is one entry of the sidebar's project links.
type Link struct {
	Title string `json:"title" mapstructure:"title"`
	URL   string `json:"url" mapstructure:"url"`
}

// DefaultLinks is shown when no links are configured.
var DefaultLinks = []Link{
	{Title: "GitHub Source", URL: "https://github.com/hrawp/cintel-07-tdash"},
	{Title: "GitHub App", URL: "https://github.com/hrawp/cintel-07-tdash/blob/main/app/app.py"},
	{Title: "GitHub Issues", URL: "https://github.com/hrawp/cintel-07-tdash/issues"},
	{Title: "PyShiny", URL: "https://shiny.posit.co/py/"},
	{Title: "Template: Basic Dashboard", URL: "https://shiny.posit.co/py/templates/dashboard/"},
	{Title: "See also", URL: "https://github.com/denisecase/pyshiny-penguins-dashboard-express"},
}
