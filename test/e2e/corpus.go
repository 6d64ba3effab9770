// Package e2e provides end-to-end tests over a generated listing sheet and
// a set of student profiles with known best matches.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/internmatch/internal/models"
)

// Header is the listing sheet header row. location is not a mapped column
// and ends up in CorpusRecord.Extra.
var Header = []string{"id", "title", "description", "required_skills", "location"}

// ProfileTestCase is a profile and the title prefix its best match must carry.
type ProfileTestCase struct {
	Profile       models.QueryProfile
	ExpectedTitle string
	Description   string
}

// Corpus holds listings and profile test cases.
type Corpus struct {
	Listings  []models.CorpusRecord
	TestCases []ProfileTestCase
}

type topic struct {
	role        string
	skills      string
	description string
}

var topics = []topic{
	{"Data Science", "Python, Pandas, Machine Learning", "Analyze datasets, train classification models and present findings to the product team."},
	{"Backend Engineering", "Go, PostgreSQL, Docker", "Build REST services in Go, design database schemas and ship containers."},
	{"Frontend Engineering", "JavaScript, React, CSS", "Implement responsive web pages and reusable React components."},
	{"Mobile Development", "Kotlin, Android, Firebase", "Develop Android features and integrate Firebase analytics."},
	{"DevOps", "Kubernetes, Terraform, Linux", "Automate cloud infrastructure with Terraform and operate Kubernetes clusters."},
	{"UI/UX Design", "Figma, Prototyping, User Research", "Run user interviews, sketch wireframes and build Figma prototypes."},
	{"Digital Marketing", "SEO, Content Writing, Google Analytics", "Plan campaigns, write blog content and track traffic in Google Analytics."},
	{"Cybersecurity", "Penetration Testing, Networking, Wireshark", "Assess network security, capture traffic with Wireshark and report vulnerabilities."},
	{"Finance", "Excel, Financial Modeling, Accounting", "Prepare financial models in Excel and reconcile monthly accounting reports."},
	{"Human Resources", "Recruitment, Interviewing, Communication", "Screen candidates, schedule interviews and support onboarding."},
	{"Embedded Systems", "C, Microcontrollers, Electronics", "Program microcontrollers in C and test electronics prototypes."},
	{"Business Analysis", "SQL, Tableau, Requirements Gathering", "Gather requirements from stakeholders and build Tableau dashboards from SQL queries."},
}

var cities = []string{"Jakarta", "Bandung", "Surabaya", "Remote"}

// BuildCorpus returns one listing per topic and city. The first two cities
// of a topic share a title so deduplication has work to do.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	for ti, tp := range topics {
		for ci, city := range cities {
			title := tp.role + " Intern"
			if ci >= 2 {
				title = fmt.Sprintf("%s Intern (%s)", tp.role, city)
			}
			c.Listings = append(c.Listings, models.CorpusRecord{
				ID:             fmt.Sprintf("L%03d", ti*len(cities)+ci+1),
				Title:          title,
				Description:    tp.description,
				RequiredSkills: tp.skills,
				Extra:          map[string]string{"location": city},
			})
		}
		c.TestCases = append(c.TestCases, ProfileTestCase{
			Profile: models.QueryProfile{
				InterestedRoles: tp.role,
				Skillsets:       tp.skills,
				Experience:      "Coursework projects: " + strings.ToLower(tp.description),
			},
			ExpectedTitle: tp.role + " Intern",
			Description:   tp.role,
		})
	}
	return c
}

// Rows returns the sheet rows, header first.
func (c *Corpus) Rows() [][]string {
	rows := [][]string{Header}
	for _, l := range c.Listings {
		rows = append(rows, []string{l.ID, l.Title, l.Description, l.RequiredSkills, l.Extra["location"]})
	}
	return rows
}
