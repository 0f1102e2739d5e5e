// Package display renders brew outcomes for the terminal with lipgloss.
//
// Nothing here is interactive: [Report] returns a string that the CLI
// prints once. Colors degrade to plain text when stdout is not a TTY.
package display

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"github.com/hammamikhairi/potionbrew/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	starStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	urgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#52525b")).
			Padding(0, 1)
)

//go:embed banner.txt
var bannerArt string

// Banner renders the server start-up banner with a tagline beneath it,
// centred as a block within width columns.
func Banner(width int, tagline string) string {
	art := BannerStyle.Render(strings.TrimRight(bannerArt, "\n"))
	block := lipgloss.JoinVertical(lipgloss.Right, art, secondaryStyle.Render(tagline))
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block) + "\n"
}

// TerminalWidth is the column count of stdout, 80 when it is not a TTY.
func TerminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}

// Report renders one outcome.
func Report(out *domain.Outcome) string {
	if out == nil {
		return ""
	}
	if !out.Found() {
		return NoRecipe(out)
	}
	r := out.Solution

	header := titleStyle.Render(fmt.Sprintf("%s in %s", r.Potion, r.Cauldron)) + "  " +
		secondaryStyle.Render(out.Request.Objective.String())
	if out.LimitReached {
		header += "  " + urgentStyle.Render("(best found before the solve limit)")
	}

	sections := []string{
		header,
		sectionStyle.Render(ingredients(r)),
		lipgloss.JoinHorizontal(lipgloss.Top,
			sectionStyle.Render(substances(r)),
			sectionStyle.Render(quality(r)),
		),
	}
	if len(r.Sensory) > 0 {
		sections = append(sections, sectionStyle.Render(sensory(r)))
	}
	sections = append(sections, sectionStyle.Render(prices(r)))
	sections = append(sections, secondaryStyle.Render(
		fmt.Sprintf("report %s · %d nodes · %s", out.ID, out.Nodes, out.Elapsed.Round(time.Millisecond))))

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// NoRecipe renders an outcome without a recipe.
func NoRecipe(out *domain.Outcome) string {
	req := out.Request
	msg := fmt.Sprintf("No %s recipe fits %s with this inventory", req.Potion, req.Cauldron)
	if out.Status != domain.StatusInfeasible {
		msg += fmt.Sprintf(" (solver status: %s)", out.Status)
	}
	return urgentStyle.Render(msg) + "\n" +
		secondaryStyle.Render("Try more ingredients, a larger cauldron, or looser sensory rules.") + "\n"
}

// Error renders a failure line.
func Error(err error) string {
	return urgentStyle.Render("error: "+err.Error()) + "\n"
}

func row(label string, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-14s", label)) + primaryStyle.Render(value)
}

func ingredients(r *domain.RecipeSolution) string {
	uses := append([]domain.IngredientUse(nil), r.Ingredients...)
	sort.SliceStable(uses, func(i, j int) bool { return uses[i].Quantity > uses[j].Quantity })

	nameW := len("Ingredient")
	for _, u := range uses {
		nameW = max(nameW, lipgloss.Width(u.Name))
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s %5s %8s", nameW, "Ingredient", "Qty", "Price")))
	for _, u := range uses {
		b.WriteByte('\n')
		b.WriteString(primaryStyle.Render(fmt.Sprintf("%-*s %5d %8.0f", nameW, u.Name, u.Quantity, u.UnitPrice)))
	}
	b.WriteByte('\n')
	b.WriteString(secondaryStyle.Render(fmt.Sprintf("%-*s %5d %8.0f", nameW, "total", r.IngredientCount, r.IngredientCost)))
	return b.String()
}

func substances(r *domain.RecipeSolution) string {
	var lines []string
	lines = append(lines, labelStyle.Render("Magimins"))
	for _, s := range domain.Substances {
		if r.Substances[s] == 0 {
			continue
		}
		lines = append(lines, row(s.String(), fmt.Sprintf("%d", r.Substances[s])))
	}
	lines = append(lines, row("total", fmt.Sprintf("%d", r.TotalSubstance)))
	return strings.Join(lines, "\n")
}

func quality(r *domain.RecipeSolution) string {
	return strings.Join([]string{
		row("Stability", fmt.Sprintf("%s (%+d)", r.Stability, r.StabilityStars)),
		row("Deviance", fmt.Sprintf("%.1f (%.1f%%)", r.Deviance, 100*r.DevianceFraction)),
		row("Base stars", fmt.Sprintf("%d", r.BaseStars)),
		row("Stars", starStyle.Render(Stars(r.TotalStars))),
	}, "\n")
}

func sensory(r *domain.RecipeSolution) string {
	lines := []string{labelStyle.Render("Sensory")}
	for _, a := range domain.SensoryAxes {
		mix, ok := r.Sensory[a]
		if !ok {
			continue
		}
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-14s", a.String()))+
			goodStyle.Render(fmt.Sprintf("%3.0f%% good", 100*mix.Good))+"  "+
			urgentStyle.Render(fmt.Sprintf("%3.0f%% bad", 100*mix.Bad)))
	}
	return strings.Join(lines, "\n")
}

func prices(r *domain.RecipeSolution) string {
	return strings.Join([]string{
		labelStyle.Render(fmt.Sprintf("%-14s %10s %10s", "", "base", "actual")),
		row("Potion", fmt.Sprintf("%10.0f %10.0f", r.BasePotionPrice, r.ActualPotionPrice)),
		row("Batch", fmt.Sprintf("%10.0f %10.0f", r.BaseBatchPrice, r.ActualBatchPrice)),
		row("Profit", fmt.Sprintf("%10.0f %10.0f", r.BaseNetProfit, r.ActualNetProfit)),
	}, "\n")
}

// Stars formats a star count as tier name plus stars within the tier,
// e.g. 14 -> "greater ★★". Counts past the top tier stay in it.
func Stars(total int) string {
	if total < 0 {
		return fmt.Sprintf("%d", total)
	}
	tier := domain.Tier(total / domain.StarsPerTier)
	n := total % domain.StarsPerTier
	if tier > domain.TierMasterwork {
		tier = domain.TierMasterwork
		n = total - domain.StarLevel(tier, 0)
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", tier, strings.Repeat("★", n)))
}

// Catalog renders one line per entry under a title.
func Catalog(title string, lines []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	for _, l := range lines {
		b.WriteString("\n  ")
		b.WriteString(primaryStyle.Render(l))
	}
	b.WriteByte('\n')
	return b.String()
}
